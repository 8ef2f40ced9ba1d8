package command

import (
	"encoding/hex"
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/confmesh/confstore-go/internal/cli/output"
	"github.com/confmesh/confstore-go/pkg/crypto/aescbc"
)

// keyView is the output shape for keygen.
type keyView struct {
	Algorithm string `json:"algorithm" yaml:"algorithm"`
	KeyHex    string `json:"key_hex" yaml:"key_hex"`
	SaltHex   string `json:"salt_hex,omitempty" yaml:"salt_hex,omitempty"`
}

// KeygenCommand generates or derives an encryption key.
func KeygenCommand() *cli.Command {
	return &cli.Command{
		Name:  "keygen",
		Usage: "generate a random key, or derive one from a passphrase",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "from-passphrase",
				Usage: "derive the key from this passphrase instead of random bytes",
			},
		},
		Action: runKeygen,
	}
}

func runKeygen(c *cli.Context) error {
	algorithm, err := aescbc.ParseAlgorithm(c.String("algorithm"))
	if err != nil {
		return err
	}

	view := keyView{Algorithm: algorithm.String()}
	if passphrase := c.String("from-passphrase"); passphrase != "" {
		var salt []byte
		if s := c.String("salt-hex"); s != "" {
			salt, err = hex.DecodeString(s)
			if err != nil {
				return fmt.Errorf("decode salt-hex: %w", err)
			}
		}
		key, usedSalt, err := aescbc.DeriveKeyFromPassphrase([]byte(passphrase), salt, algorithm)
		if err != nil {
			return err
		}
		view.KeyHex = hex.EncodeToString(key)
		view.SaltHex = hex.EncodeToString(usedSalt)
		aescbc.ZeroKey(key)
	} else {
		key, err := aescbc.GenerateKey(algorithm)
		if err != nil {
			return err
		}
		view.KeyHex = hex.EncodeToString(key)
		aescbc.ZeroKey(key)
	}

	format := c.String("output")
	if format == "table" {
		// A single key reads better as plain lines.
		fmt.Printf("algorithm: %s\nkey_hex: %s\n", view.Algorithm, view.KeyHex)
		if view.SaltHex != "" {
			fmt.Printf("salt_hex: %s\n", view.SaltHex)
		}
		return nil
	}
	formatter, err := output.New(format)
	if err != nil {
		return err
	}
	return formatter.Format(os.Stdout, view)
}

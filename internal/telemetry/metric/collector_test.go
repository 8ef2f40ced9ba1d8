package metric

import (
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/confmesh/confstore-go/internal/core/service"
)

type fakeProvider struct {
	stats service.Stats
}

func (f *fakeProvider) Stats() service.Stats { return f.stats }

func TestCollector(t *testing.T) {
	provider := &fakeProvider{stats: service.Stats{
		Entries:        12,
		Namespaces:     3,
		Callbacks:      2,
		CallbacksFired: 40,
		EncryptionSet:  true,
	}}

	reg := prometheus.NewPedanticRegistry()
	if err := reg.Register(NewCollector(provider)); err != nil {
		t.Fatalf("Register: %v", err)
	}

	expected := `
# HELP confstore_callbacks Number of registered change callbacks.
# TYPE confstore_callbacks gauge
confstore_callbacks 2
# HELP confstore_callbacks_fired_total Total change callback invocations.
# TYPE confstore_callbacks_fired_total counter
confstore_callbacks_fired_total 40
# HELP confstore_encryption_enabled Whether an encryption key is installed (0 or 1).
# TYPE confstore_encryption_enabled gauge
confstore_encryption_enabled 1
# HELP confstore_entries Number of stored entries.
# TYPE confstore_entries gauge
confstore_entries 12
# HELP confstore_namespaces Number of allocated namespaces, including the default.
# TYPE confstore_namespaces gauge
confstore_namespaces 3
`
	if err := testutil.GatherAndCompare(reg, strings.NewReader(expected)); err != nil {
		t.Errorf("unexpected metrics: %v", err)
	}
}

func TestCollectorTracksLiveManager(t *testing.T) {
	m := service.New()
	if err := m.Init(); err != nil {
		t.Fatalf("Init: %v", err)
	}

	reg := prometheus.NewPedanticRegistry()
	if err := reg.Register(NewCollector(m)); err != nil {
		t.Fatalf("Register: %v", err)
	}

	if err := m.SetInt32("a", 1); err != nil {
		t.Fatal(err)
	}
	if err := m.SetInt32("b", 2); err != nil {
		t.Fatal(err)
	}

	if got := testutil.CollectAndCount(NewCollector(m)); got != 5 {
		t.Errorf("metric count = %d, want 5", got)
	}
	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("Gather: %v", err)
	}
	found := false
	for _, mf := range mfs {
		if mf.GetName() == "confstore_entries" {
			found = true
			if v := mf.GetMetric()[0].GetGauge().GetValue(); v != 2 {
				t.Errorf("confstore_entries = %v, want 2", v)
			}
		}
	}
	if !found {
		t.Error("confstore_entries not gathered")
	}
}

package rules

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/Hara602/micStreamer/internal/model"
	"github.com/Hara602/micStreamer/internal/sysutil"
)

func TestMain(m *testing.M) {
	sysutil.InitLogger("error", false)
	os.Exit(m.Run())
}

func tempStore(t *testing.T) *Store {
	t.Helper()
	return NewStore(filepath.Join(t.TempDir(), "89-usb-mics.rules"), nil)
}

func TestAddRuleValidation(t *testing.T) {
	tests := []struct {
		name     string
		vendor   string
		product  string
		friendly string
		wantErr  bool
	}{
		{name: "valid basic", vendor: "0d8c", product: "0014", friendly: "micfront", wantErr: false},
		{name: "valid with hyphen and digits", vendor: "17a0", product: "0305", friendly: "mic-2", wantErr: false},
		{name: "uppercase name", vendor: "0d8c", product: "0014", friendly: "MicFront", wantErr: true},
		{name: "name with space", vendor: "0d8c", product: "0014", friendly: "mic front", wantErr: true},
		{name: "name with underscore", vendor: "0d8c", product: "0014", friendly: "mic_front", wantErr: true},
		{name: "empty name", vendor: "0d8c", product: "0014", friendly: "", wantErr: true},
		{name: "vendor too short", vendor: "d8c", product: "0014", friendly: "micfront", wantErr: true},
		{name: "vendor uppercase hex", vendor: "0D8C", product: "0014", friendly: "micfront", wantErr: true},
		{name: "product not hex", vendor: "0d8c", product: "001x", friendly: "micfront", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := tempStore(t)
			_, err := store.AddRule(tt.vendor, tt.product, "", model.MatchBasic, tt.friendly, "", "")

			if tt.wantErr {
				var verr *model.ValidationError
				if !errors.As(err, &verr) {
					t.Fatalf("AddRule() error = %v, want ValidationError", err)
				}
				// nothing gets written on validation failure
				got, _ := store.Load()
				if len(got) != 0 {
					t.Errorf("rule was appended despite validation failure: %+v", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("AddRule() unexpected error: %v", err)
			}
		})
	}
}

func TestAddRuleAppendOrder(t *testing.T) {
	store := tempStore(t)

	names := []string{"micfront", "micback", "micdoor"}
	for i, n := range names {
		vendor := "0d8c"
		if i == 2 {
			vendor = "17a0"
		}
		if _, err := store.AddRule(vendor, "0014", "", model.MatchBasic, n, "", ""); err != nil {
			t.Fatalf("AddRule(%s) failed: %v", n, err)
		}
	}

	got, err := store.Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if len(got) != len(names) {
		t.Fatalf("Load() returned %d rules, want %d", len(got), len(names))
	}
	for i, n := range names {
		if got[i].FriendlyName != n {
			t.Errorf("rule %d = %q, want %q (append order must be preserved)", i, got[i].FriendlyName, n)
		}
	}
}

func TestAddRuleDegradesToBasic(t *testing.T) {
	store := tempStore(t)

	// port-pattern requested but no port resolved: must fall back, not fail
	rule, err := store.AddRule("0d8c", "0014", "", model.MatchPortPattern, "micfront", "", "")
	if err != nil {
		t.Fatalf("AddRule() failed: %v", err)
	}
	if rule.Mode != model.MatchBasic {
		t.Errorf("Mode = %s, want basic after degradation", rule.Mode)
	}

	// and the degradation is recorded in the file, not silent
	b, err := os.ReadFile(store.path)
	if err != nil {
		t.Fatalf("read rules file: %v", err)
	}
	if !strings.Contains(string(b), "degraded=yes") {
		t.Errorf("rules file has no degradation note:\n%s", b)
	}
}

func TestDuplicateVendorProductIsNonFatal(t *testing.T) {
	store := tempStore(t)

	if _, err := store.AddRule("0d8c", "0014", "3-1.2", model.MatchPortPattern, "micone", "", ""); err != nil {
		t.Fatalf("first AddRule() failed: %v", err)
	}
	// same vendor+product warns but still appends
	if _, err := store.AddRule("0d8c", "0014", "3-1.4", model.MatchPortPattern, "mictwo", "", ""); err != nil {
		t.Fatalf("duplicate AddRule() failed: %v", err)
	}

	got, _ := store.Load()
	if len(got) != 2 {
		t.Fatalf("Load() returned %d rules, want 2", len(got))
	}
}

func TestLoadRoundTrip(t *testing.T) {
	store := tempStore(t)

	want := []struct {
		mode model.MatchMode
		port string
		name string
	}{
		{model.MatchBasic, "", "micbasic"},
		{model.MatchPortPattern, "3-1.4", "micpattern"},
		{model.MatchExactPort, "1-1.2.1", "micexact"},
	}
	for _, w := range want {
		if _, err := store.AddRule("17a0", "0305", w.port, w.mode, w.name, "Samson Go Mic", "a1b2c3d4"); err != nil {
			t.Fatalf("AddRule(%s) failed: %v", w.name, err)
		}
	}

	got, err := store.Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if len(got) != len(want) {
		t.Fatalf("Load() returned %d rules, want %d", len(got), len(want))
	}
	for i, w := range want {
		if got[i].Mode != w.mode || got[i].PortPattern != w.port || got[i].FriendlyName != w.name {
			t.Errorf("rule %d = {mode %s, port %q, name %q}, want {%s, %q, %q}",
				i, got[i].Mode, got[i].PortPattern, got[i].FriendlyName, w.mode, w.port, w.name)
		}
		if got[i].UniqTag != "a1b2c3d4" {
			t.Errorf("rule %d lost uniq tag from comment: %q", i, got[i].UniqTag)
		}
		if got[i].SourceName != "Samson Go Mic" {
			t.Errorf("rule %d lost source name from comment: %q", i, got[i].SourceName)
		}
	}
}

func TestMatchFirstWins(t *testing.T) {
	ruleList := []model.MappingRule{
		{VendorID: "0d8c", ProductID: "0014", Mode: model.MatchBasic, FriendlyName: "broad"},
		{VendorID: "0d8c", ProductID: "0014", Mode: model.MatchPortPattern, PortPattern: "3-1.4", FriendlyName: "specific"},
	}

	// the earlier, broader rule shadows the later specific one
	got := Match(ruleList, "0d8c", "0014", "/devices/usb3/3-1/3-1.4/sound", "3-1.4")
	if got == nil || got.FriendlyName != "broad" {
		t.Fatalf("Match() = %+v, want the first (broad) rule", got)
	}
}

func TestMatchModes(t *testing.T) {
	tests := []struct {
		name     string
		rule     model.MappingRule
		devPath  string
		portPath string
		wantHit  bool
	}{
		{
			name:    "pattern substring hit",
			rule:    model.MappingRule{VendorID: "0d8c", ProductID: "0014", Mode: model.MatchPortPattern, PortPattern: "3-1.4", FriendlyName: "m"},
			devPath: "/devices/platform/soc/usb/usb3/3-1/3-1.4/3-1.4:1.0/sound/card1",
			wantHit: true,
		},
		{
			name:    "pattern substring miss",
			rule:    model.MappingRule{VendorID: "0d8c", ProductID: "0014", Mode: model.MatchPortPattern, PortPattern: "3-1.4", FriendlyName: "m"},
			devPath: "/devices/platform/soc/usb/usb3/3-1/3-1.2/sound/card1",
			wantHit: false,
		},
		{
			name:     "exact hit",
			rule:     model.MappingRule{VendorID: "0d8c", ProductID: "0014", Mode: model.MatchExactPort, PortPattern: "3-1.4", FriendlyName: "m"},
			portPath: "3-1.4",
			wantHit:  true,
		},
		{
			name:     "exact rejects sibling port",
			rule:     model.MappingRule{VendorID: "0d8c", ProductID: "0014", Mode: model.MatchExactPort, PortPattern: "3-1.4", FriendlyName: "m"},
			portPath: "3-1.41",
			wantHit:  false,
		},
		{
			name:    "vendor mismatch never matches",
			rule:    model.MappingRule{VendorID: "17a0", ProductID: "0014", Mode: model.MatchBasic, FriendlyName: "m"},
			wantHit: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Match([]model.MappingRule{tt.rule}, "0d8c", "0014", tt.devPath, tt.portPath)
			if (got != nil) != tt.wantHit {
				t.Errorf("Match() hit = %v, want %v", got != nil, tt.wantHit)
			}
		})
	}
}

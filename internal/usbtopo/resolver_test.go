//go:build linux

package usbtopo

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"testing"

	"github.com/Hara602/micStreamer/internal/model"
	"github.com/Hara602/micStreamer/internal/sysutil"
)

func TestMain(m *testing.M) {
	sysutil.InitLogger("error", false)
	os.Exit(m.Run())
}

type fakeUdevadm struct {
	out string
	err error
}

func (f fakeUdevadm) Query(string) (string, error) { return f.out, f.err }

// newFakeResolver builds a resolver over an empty fake sysfs tree.
func newFakeResolver(t *testing.T) (*Resolver, string) {
	t.Helper()
	root := t.TempDir()
	devices := filepath.Join(root, "devices")
	char := filepath.Join(root, "char")
	for _, d := range []string{devices, char} {
		if err := os.MkdirAll(d, 0755); err != nil {
			t.Fatal(err)
		}
	}
	r := &Resolver{
		devicesDir: devices,
		charDir:    char,
		udevadm:    fakeUdevadm{err: errors.New("udevadm unavailable")},
		now:        nanotime,
	}
	return r, root
}

// addNode creates a topology node dir with the given attribute files
// and links it from the char-device dir so canonicalNode finds it.
func addNode(t *testing.T, root, name string, bus, dev int, attrs map[string]string, linked bool) {
	t.Helper()
	node := filepath.Join(root, "devices", name)
	if err := os.MkdirAll(node, 0755); err != nil {
		t.Fatal(err)
	}
	for k, v := range attrs {
		if err := os.WriteFile(filepath.Join(node, k), []byte(v+"\n"), 0644); err != nil {
			t.Fatal(err)
		}
	}
	if linked {
		minor := (bus-1)*128 + dev - 1
		link := filepath.Join(root, "char", fmt.Sprintf("189:%d", minor))
		if err := os.Symlink(node, link); err != nil {
			t.Fatal(err)
		}
	}
}

func TestResolveViaDevpathAttr(t *testing.T) {
	r, root := newFakeResolver(t)
	addNode(t, root, "3-1.4", 3, 5, map[string]string{
		"busnum":  "3",
		"devnum":  "5",
		"devpath": "1.4",
		"serial":  "SER1234567890",
		"product": "USB Audio Device",
	}, true)

	got, err := r.ResolvePort(3, 5)
	if err != nil {
		t.Fatalf("ResolvePort() failed: %v", err)
	}
	if got.PortPath != "3-1.4" {
		t.Errorf("PortPath = %q, want %q (bus prefix + devpath attr)", got.PortPath, "3-1.4")
	}
	if got.Token != "SER12345" {
		t.Errorf("Token = %q, want first 8 chars of serial", got.Token)
	}
	if got.String() != "3-1.4-SER12345" {
		t.Errorf("String() = %q", got.String())
	}
}

func TestResolveViaTopologyScan(t *testing.T) {
	r, root := newFakeResolver(t)
	// no char-dev link: the direct node lookup misses and the scan kicks in
	addNode(t, root, "1-1.2.1", 1, 7, map[string]string{
		"busnum": "1",
		"devnum": "7",
		"serial": "ABCD",
	}, false)
	// decoy on another address
	addNode(t, root, "1-1.3", 1, 9, map[string]string{
		"busnum": "1",
		"devnum": "9",
	}, false)

	got, err := r.ResolvePort(1, 7)
	if err != nil {
		t.Fatalf("ResolvePort() failed: %v", err)
	}
	if got.PortPath != "1-1.2.1" {
		t.Errorf("PortPath = %q, want %q (fragment of scanned node path)", got.PortPath, "1-1.2.1")
	}
	if got.Token != "ABCD" {
		t.Errorf("Token = %q, want short serial used whole", got.Token)
	}
}

func TestResolveViaUdevadm(t *testing.T) {
	r, _ := newFakeResolver(t)
	r.udevadm = fakeUdevadm{out: `P: /devices/platform/soc/3f980000.usb/usb1/1-1/1-1.2
E: DEVPATH=/devices/platform/soc/3f980000.usb/usb1/1-1/1-1.2
E: ID_SERIAL_SHORT=XYZ987654321
E: ID_MODEL=Go_Mic
`}

	got, err := r.ResolvePort(1, 4)
	if err != nil {
		t.Fatalf("ResolvePort() failed: %v", err)
	}
	if got.PortPath != "1-1.2" {
		t.Errorf("PortPath = %q, want %q (from udevadm devpath)", got.PortPath, "1-1.2")
	}
	if got.Token != "XYZ98765" {
		t.Errorf("Token = %q, want serial from udevadm", got.Token)
	}
}

func TestResolveSynthesizedFallback(t *testing.T) {
	// nothing resolvable anywhere: still a non-empty identity, never an error
	r, _ := newFakeResolver(t)

	got, err := r.ResolvePort(3, 12)
	if err != nil {
		t.Fatalf("ResolvePort() failed: %v", err)
	}
	if got.PortPath != "usb-bus3-port12" {
		t.Errorf("PortPath = %q, want synthesized usb-bus3-port12", got.PortPath)
	}
	if !regexp.MustCompile(`^[0-9a-f]{8}$`).MatchString(got.Token) {
		t.Errorf("Token = %q, want 8 hex chars", got.Token)
	}
}

func TestDistinctTokensWithoutSerial(t *testing.T) {
	// two identical devices, no serial, degraded port resolution:
	// the timestamp in the hash must keep their tokens apart
	r, _ := newFakeResolver(t)
	tick := int64(0)
	r.now = func() int64 { tick++; return tick }

	a, err := r.ResolvePort(3, 12)
	if err != nil {
		t.Fatal(err)
	}
	b, err := r.ResolvePort(3, 12)
	if err != nil {
		t.Fatal(err)
	}
	if a.Token == b.Token {
		t.Errorf("both devices got token %q, identifiers would collide", a.Token)
	}
}

func TestResolveAbsentBusDev(t *testing.T) {
	r, _ := newFakeResolver(t)
	for _, pair := range [][2]int{{0, 5}, {3, 0}, {-1, -1}} {
		_, err := r.ResolvePort(pair[0], pair[1])
		var rf *model.ResolutionFailure
		if !errors.As(err, &rf) {
			t.Errorf("ResolvePort(%d, %d) error = %v, want ResolutionFailure", pair[0], pair[1], err)
		}
	}
}

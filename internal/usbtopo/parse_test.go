package usbtopo

import "testing"

func TestExtractPortFragment(t *testing.T) {
	tests := []struct {
		path string
		want string
		ok   bool
	}{
		{path: "/sys/bus/usb/devices/3-1.4", want: "3-1.4", ok: true},
		{path: "/devices/platform/soc/3f980000.usb/usb1/1-1/1-1.2", want: "1-1.2", ok: true},
		{path: "/sys/bus/usb/devices/1-1.2.1", want: "1-1.2.1", ok: true},
		{path: "/sys/bus/usb/devices/3-1", want: "3-1", ok: true},
		// interface nodes carry a colon and are not device ports
		{path: "/sys/bus/usb/devices/3-1.4:1.0", want: "", ok: false},
		// root hubs and misc dirs have no port fragment
		{path: "/sys/bus/usb/devices/usb3", want: "", ok: false},
		{path: "/sys/devices/platform/soc", want: "", ok: false},
	}

	for _, tt := range tests {
		got, ok := extractPortFragment(tt.path)
		if got != tt.want || ok != tt.ok {
			t.Errorf("extractPortFragment(%q) = (%q, %v), want (%q, %v)", tt.path, got, ok, tt.want, tt.ok)
		}
	}
}

func TestParseUdevProperties(t *testing.T) {
	out := `P: /devices/platform/soc/3f980000.usb/usb1/1-1/1-1.2
N: bus/usb/001/004
E: DEVPATH=/devices/platform/soc/3f980000.usb/usb1/1-1/1-1.2
E: DEVNAME=/dev/bus/usb/001/004
E: ID_SERIAL_SHORT=0123456789AB
E: ID_MODEL=USB_Audio_Device
E: BROKEN_LINE_WITHOUT_VALUE
`
	p := ParseUdevProperties(out)
	if p.DevPath != "/devices/platform/soc/3f980000.usb/usb1/1-1/1-1.2" {
		t.Errorf("DevPath = %q", p.DevPath)
	}
	if p.SerialShort != "0123456789AB" {
		t.Errorf("SerialShort = %q", p.SerialShort)
	}
	if p.Model != "USB_Audio_Device" {
		t.Errorf("Model = %q", p.Model)
	}
}

func TestParseUdevPropertiesEmpty(t *testing.T) {
	// empty output means "signal unavailable", all fields stay blank
	p := ParseUdevProperties("")
	if p.DevPath != "" || p.SerialShort != "" || p.Model != "" {
		t.Errorf("ParseUdevProperties(\"\") = %+v, want zero value", p)
	}
}

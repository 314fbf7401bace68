package pg

import (
	"math/big"
	"strings"
	"testing"
)

func TestParseUnit(t *testing.T) {
	tests := []struct {
		in   string
		mult float64
		base string
		fail bool
	}{
		{"1", 1.0, "", false},                        // no base unit
		{" ", 1.0, "", false},                        // white space
		{"8kB", 8.0, "kB", false},                    // basic
		{"8 kB ", 8.0, "kB", false},                  // spaces discarded
		{"kB", 1.0, "kB", false},                     // no numeric part
		{".8kB", 0.8, "kB", false},                   // decimal w/ no int
		{"122B", 122.0, "B", false},                  // different base unit
		{"-400MB", -400.0, "MB", false},              // negative
		{".kB", 0.0, "", true},                       // invalid numeric part
		{"1.1.1kB", 0.0, "", true},                   // invalid numeric part
		{"8kB63", 8.0, "kB63", false},                // number in base unit
		{"1.21 GW", 1.21, "GW", false},               // strip space between number and base unit
		{"J/s", 1.0, "J/s", false},                   // complex base unit
		{"kg m^2 / s^2", 1.0, "kg m^2 / s^2", false}, // complex base unit
		{"-v", -1.0, "v", false},                     // consider a lone dash prefix as a negation
		{"7 dog years", 7.0, "dog years", false},     // base unit with spaces
		{"", 1.0, "", false},                         // empty string
	}

	for i := range tests {
		ti := &tests[i]
		mult, base, err := parseUnit(ti.in)
		if err != nil && !ti.fail {
			t.Errorf("parseUnit(%s) failed: %v", ti.in, err)
		} else if err == nil && ti.fail {
			t.Errorf("parseUnit(%s) was supposed to fail.", ti.in)
		}
		if mult != ti.mult {
			t.Errorf("parseUnit(%s) returned mult %f, expected %f", ti.in, mult, ti.mult)
		}
		if base != ti.base {
			t.Errorf("parseUnit(%s) returned base %s, expected %s", ti.in, base, ti.base)
		}
		//t.Logf("multiple=%f, base=%s", mult, base)
	}

}

func TestParseAmount(t *testing.T) {
	max := new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 256), big.NewInt(1))
	tests := []struct {
		in   string
		want *big.Int
		fail bool
	}{
		{"0", big.NewInt(0), false},
		{"123456789", big.NewInt(123456789), false},
		{max.String(), max, false},
		{"-1", nil, true},
		{"1.5", nil, true},
		{"", nil, true},
	}
	for _, tt := range tests {
		amt, err := parseAmount(tt.in)
		if tt.fail {
			if err == nil {
				t.Errorf("parseAmount(%q) should have failed", tt.in)
			}
			continue
		}
		if err != nil {
			t.Errorf("parseAmount(%q) failed: %v", tt.in, err)
			continue
		}
		if amt.Cmp(tt.want) != 0 {
			t.Errorf("parseAmount(%q) = %v, want %v", tt.in, amt, tt.want)
		}
	}
}

func TestDataSourceName(t *testing.T) {
	dsn := dataSourceName("127.0.0.1", "5432", "ringdex", "", "ledger")
	if dsn != "host=127.0.0.1 user=ringdex dbname=ledger sslmode=disable port=5432" {
		t.Errorf("wrong TCP data source name %q", dsn)
	}
	dsn = dataSourceName("/run/postgresql", "5432", "ringdex", "pass", "ledger")
	if dsn != "host=/run/postgresql user=ringdex dbname=ledger sslmode=disable password=pass" {
		t.Errorf("wrong UNIX socket data source name %q", dsn)
	}
}

func TestPGSettingsString(t *testing.T) {
	settings := PGSettings{
		"shared_buffers": {Name: "shared_buffers", Setting: "16", Unit: "8kB",
			Source: "conf file", SourceFile: "/etc/pg.conf", SourceLine: "12"},
		"synchronous_commit": {Name: "synchronous_commit", Setting: "on", Source: "default"},
		"work_mem":           {Name: "work_mem", Setting: "4096", Unit: "kB", Source: "session"},
	}
	lines := strings.Split(strings.TrimSuffix(settings.String(), "\n"), "\n")
	want := []string{
		"    shared_buffers = 128 kB (conf file /etc/pg.conf:12)",
		"synchronous_commit = on",
		"          work_mem = 4096 kB (session)",
	}
	if len(lines) != len(want) {
		t.Fatalf("wanted %d lines, got %d: %q", len(want), len(lines), lines)
	}
	for i := range want {
		if lines[i] != want[i] {
			t.Errorf("line %d: got %q, want %q", i, lines[i], want[i])
		}
	}
}

package rules

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/radieske/lottery-points-platform/internal/lottery/domain"
)

func TestDefault_ModalityTable(t *testing.T) {
	r := Default()
	tests := []struct {
		m          domain.Modality
		digits     int
		max        int
		cap        int64
		multiplier int64
	}{
		{domain.Tens, 2, 99, 10, 20},
		{domain.Hundreds, 3, 999, 30, 400},
		{domain.Thousands, 4, 9999, 50, 4000},
	}
	for _, tt := range tests {
		mr, err := r.Modality(tt.m)
		if err != nil {
			t.Fatalf("Modality(%s) error: %v", tt.m, err)
		}
		if mr.Digits != tt.digits || mr.Max != tt.max || mr.Cap != tt.cap || mr.Multiplier != tt.multiplier {
			t.Errorf("Modality(%s) = %+v", tt.m, mr)
		}
	}
}

func TestValidateNumber(t *testing.T) {
	r := Default()
	tests := []struct {
		m      domain.Modality
		number string
		ok     bool
	}{
		{domain.Tens, "07", true},
		{domain.Tens, "99", true},
		{domain.Tens, "00", false},
		{domain.Tens, "7", false},
		{domain.Tens, "007", false},
		{domain.Tens, "a7", false},
		{domain.Hundreds, "034", true},
		{domain.Hundreds, "000", false},
		{domain.Thousands, "0007", true},
		{domain.Thousands, "9999", true},
		{domain.Thousands, "-001", false},
	}
	for _, tt := range tests {
		err := r.ValidateNumber(tt.m, tt.number)
		if tt.ok && err != nil {
			t.Errorf("ValidateNumber(%s, %q) error: %v", tt.m, tt.number, err)
		}
		if !tt.ok && !errors.Is(err, domain.ErrValidation) {
			t.Errorf("ValidateNumber(%s, %q) = %v, want validation error", tt.m, tt.number, err)
		}
	}
}

func TestFormatNumberAndPayout(t *testing.T) {
	r := Default()
	mr, _ := r.Modality(domain.Hundreds)
	if got := mr.FormatNumber(34); got != "034" {
		t.Errorf("FormatNumber(34) = %q, want 034", got)
	}
	if got := mr.Payout(30); got != 12000 {
		t.Errorf("Payout(30) = %d, want 12000", got)
	}
}

func TestInWindow(t *testing.T) {
	r := Default()
	for hour, want := range map[int]bool{8: false, 9: true, 16: true, 17: false, 18: false} {
		if got := r.InWindow(hour); got != want {
			t.Errorf("InWindow(%d) = %v, want %v", hour, got, want)
		}
	}
}

func TestClock_UsesGameTimezone(t *testing.T) {
	r := Default()
	// 02:30 UTC já é o dia anterior em São Paulo (UTC-3)
	date, hour := r.Clock(time.Date(2024, 1, 2, 2, 30, 0, 0, time.UTC))
	if date != "2024-01-01" || hour != 23 {
		t.Errorf("Clock() = %s %d, want 2024-01-01 23", date, hour)
	}
}

func TestLoad_YAMLOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rules.yaml")
	content := "timezone: UTC\nopen_hour: 8\nclose_hour: 20\nmodalities:\n  dezena:\n    cap: 15\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	r, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if r.OpenHour() != 8 || r.CloseHour() != 20 {
		t.Errorf("window = [%d,%d), want [8,20)", r.OpenHour(), r.CloseHour())
	}
	mr, _ := r.Modality(domain.Tens)
	if mr.Cap != 15 || mr.Multiplier != 20 {
		t.Errorf("tens = %+v, want cap 15 multiplier 20", mr)
	}
}

func TestLoad_TOMLOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rules.toml")
	content := "draw_hour = 19\nmin_withdrawal = 50\n\n[modalities.thousands]\nmultiplier = 5000\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	r, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if r.DrawHour() != 19 || r.MinWithdrawal() != 50 {
		t.Errorf("draw hour %d min withdrawal %d", r.DrawHour(), r.MinWithdrawal())
	}
	mr, _ := r.Modality(domain.Thousands)
	if mr.Multiplier != 5000 {
		t.Errorf("thousands multiplier = %d, want 5000", mr.Multiplier)
	}
}

func TestBuild_RejectsInvalid(t *testing.T) {
	zero := int64(0)
	open, closeHour := 17, 9
	cases := map[string]Config{
		"zero cap":        {Modalities: map[string]ModalityConfig{"tens": {Cap: &zero}}},
		"inverted window": {OpenHour: &open, CloseHour: &closeHour},
		"bad timezone":    {Timezone: "Mars/Olympus"},
		"bad modality":    {Modalities: map[string]ModalityConfig{"quina": {}}},
	}
	for name, cfg := range cases {
		if _, err := Build(cfg); err == nil {
			t.Errorf("%s: Build() should fail", name)
		}
	}
}

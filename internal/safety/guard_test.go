package safety

import (
	"strings"
	"testing"
)

func mustGuard(t *testing.T, cfg Config) *Guard {
	t.Helper()
	g, err := NewGuard(cfg)
	if err != nil {
		t.Fatalf("NewGuard: %v", err)
	}
	return g
}

func TestRejectsDangerousLaunchTarget(t *testing.T) {
	g := mustGuard(t, Config{})
	v := g.ValidateLaunchTarget("rm -rf /")
	if v.Allowed {
		t.Fatal("expected rejection")
	}
	if !strings.Contains(v.Reason, "disallowed") {
		t.Errorf("reason should name the violation, got %q", v.Reason)
	}
}

func TestLaunchTargetPatterns(t *testing.T) {
	g := mustGuard(t, Config{})
	tests := []struct {
		target  string
		allowed bool
	}{
		{"code", true},
		{"firefox", true},
		{"/usr/bin/gimp", true},
		{"rm -rf /home", false},
		{"RM   -RF /", false},
		{"shutdown now", false},
		{"Shutdown -h", false},
		{"mkfs.ext4 /dev/sda1", false},
		{"format c:", false},
		{"  format  c: ", false},
	}
	for _, tt := range tests {
		v := g.ValidateLaunchTarget(tt.target)
		if v.Allowed != tt.allowed {
			t.Errorf("ValidateLaunchTarget(%q) = %v, want %v (reason %q)",
				tt.target, v.Allowed, tt.allowed, v.Reason)
		}
	}
}

func TestRejectsDangerousText(t *testing.T) {
	g := mustGuard(t, Config{})
	v := g.ValidateText("shutdown now")
	if v.Allowed {
		t.Fatal("expected rejection")
	}
	if v.Reason == "" {
		t.Error("rejection should carry a reason")
	}
}

func TestAllowedTextPasses(t *testing.T) {
	g := mustGuard(t, Config{})
	if v := g.ValidateText("hello world"); !v.Allowed {
		t.Errorf("expected pass, got reason %q", v.Reason)
	}
}

func TestAllowListRestrictsLaunchTargets(t *testing.T) {
	g := mustGuard(t, Config{AllowedLaunchTargets: []string{"Firefox", "gedit"}})

	if v := g.ValidateLaunchTarget("firefox"); !v.Allowed {
		t.Errorf("allow-listed target rejected: %q", v.Reason)
	}
	if v := g.ValidateLaunchTarget("  GEDIT "); !v.Allowed {
		t.Errorf("allow list should be case and whitespace insensitive: %q", v.Reason)
	}
	if v := g.ValidateLaunchTarget("xterm"); v.Allowed {
		t.Error("target outside the allow list should be rejected")
	}
	// Banned patterns still win even for odd allow lists.
	if v := g.ValidateLaunchTarget("rm -rf /"); v.Allowed {
		t.Error("banned pattern must override the allow list")
	}
}

func TestAllowListDoesNotApplyToText(t *testing.T) {
	g := mustGuard(t, Config{AllowedLaunchTargets: []string{"firefox"}})
	if v := g.ValidateText("just some text"); !v.Allowed {
		t.Errorf("text has no allow-list concept, got %q", v.Reason)
	}
}

func TestExtraBannedPatterns(t *testing.T) {
	g := mustGuard(t, Config{ExtraBannedPatterns: []string{`dd\s+if=`}})
	if v := g.ValidateText("dd if=/dev/zero of=/dev/sda"); v.Allowed {
		t.Error("extra pattern should reject")
	}
}

func TestInvalidExtraPattern(t *testing.T) {
	if _, err := NewGuard(Config{ExtraBannedPatterns: []string{"("}}); err == nil {
		t.Error("expected error for invalid pattern")
	}
}

func TestDeterministicVerdicts(t *testing.T) {
	g := mustGuard(t, Config{})
	first := g.ValidateLaunchTarget("shutdown -r now")
	for i := 0; i < 5; i++ {
		if v := g.ValidateLaunchTarget("shutdown -r now"); v != first {
			t.Fatalf("verdict changed between calls: %+v vs %+v", first, v)
		}
	}
}

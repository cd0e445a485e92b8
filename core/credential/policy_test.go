package credential

import (
	"regexp"
	"strconv"
	"strings"
	"testing"
)

var sixDigitRegex = regexp.MustCompile(`^[0-9]{6}$`)

func TestStudentInitialPassword(t *testing.T) {
	rolls := []string{"2107001", "2107115", "1907042"}
	for _, roll := range rolls {
		if got := StudentInitialPassword(roll); got != roll {
			t.Errorf("StudentInitialPassword(%q) = %q; want %q", roll, got, roll)
		}
		// deterministic
		if StudentInitialPassword(roll) != StudentInitialPassword(roll) {
			t.Errorf("StudentInitialPassword(%q) not idempotent", roll)
		}
	}
}

func TestGenerateTeacherPassword(t *testing.T) {
	for i := 0; i < 100; i++ {
		pwd, err := GenerateTeacherPassword()
		if err != nil {
			t.Fatalf("GenerateTeacherPassword() failed: %v", err)
		}
		if !sixDigitRegex.MatchString(pwd) {
			t.Fatalf("GenerateTeacherPassword() = %q; want 6 digits", pwd)
		}
		n, err := strconv.Atoi(pwd)
		if err != nil {
			t.Fatalf("GenerateTeacherPassword() = %q; not numeric", pwd)
		}
		if n < 100000 || n > 999999 {
			t.Fatalf("GenerateTeacherPassword() = %d; out of [100000, 999999]", n)
		}
	}
}

func TestGenerateSecurePassword(t *testing.T) {
	tests := []struct {
		name    string
		length  int
		wantLen int
	}{
		{name: "default", length: 0, wantLen: 12},
		{name: "minimum clamp", length: 2, wantLen: 4},
		{name: "exact 4", length: 4, wantLen: 4},
		{name: "long", length: 32, wantLen: 32},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pwd, err := GenerateSecurePassword(tt.length)
			if err != nil {
				t.Fatalf("GenerateSecurePassword(%d) failed: %v", tt.length, err)
			}
			if len(pwd) != tt.wantLen {
				t.Errorf("len = %d; want %d (%q)", len(pwd), tt.wantLen, pwd)
			}
			if !strings.ContainsAny(pwd, upperChars) {
				t.Errorf("%q has no uppercase", pwd)
			}
			if !strings.ContainsAny(pwd, lowerChars) {
				t.Errorf("%q has no lowercase", pwd)
			}
			if !strings.ContainsAny(pwd, digitChars) {
				t.Errorf("%q has no digit", pwd)
			}
			if !strings.ContainsAny(pwd, symbolChars) {
				t.Errorf("%q has no symbol", pwd)
			}
		})
	}
}

func TestHashVerifyRoundTrip(t *testing.T) {
	hash, err := Hash("2107001")
	if err != nil {
		t.Fatalf("Hash() failed: %v", err)
	}
	if err := Verify("2107001", hash); err != nil {
		t.Errorf("Verify() with correct secret failed: %v", err)
	}
	if err := Verify("2107002", hash); err != ErrMismatch {
		t.Errorf("Verify() with wrong secret = %v; want ErrMismatch", err)
	}
}

func TestVerifyMalformedHash(t *testing.T) {
	err := Verify("whatever", []byte("not-a-bcrypt-hash"))
	if err == nil {
		t.Fatal("Verify() with malformed hash returned nil")
	}
	if err == ErrMismatch {
		t.Fatal("Verify() with malformed hash returned ErrMismatch; want a distinguishable error")
	}
}

func TestValidateStrength(t *testing.T) {
	tests := []struct {
		secret string
		valid  bool
	}{
		{"ab", false},
		{"", false},
		{"abcde", false},
		{"abcdef", true},
		{"123456", true},
		{strings.Repeat("a", 100), true},
		{strings.Repeat("a", 101), false},
	}
	for _, tt := range tests {
		res := ValidateStrength(tt.secret)
		if res.Valid != tt.valid {
			t.Errorf("ValidateStrength(%q).Valid = %v; want %v", tt.secret, res.Valid, tt.valid)
		}
		if !res.Valid && res.Reason == "" {
			t.Errorf("ValidateStrength(%q) invalid without reason", tt.secret)
		}
	}
}

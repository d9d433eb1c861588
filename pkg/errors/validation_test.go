package errors

import (
	"math"
	"strings"
	"testing"
)

func TestValidateEnum(t *testing.T) {
	tests := []struct {
		name    string
		value   string
		wantErr bool
	}{
		{"spline", "spline", false},
		{"polygon", "polygon", false},
		{"pixel", "pixel", false},
		{"empty", "", true},
		{"wrong case", "Spline", true},
		{"injection attempt", "spline; rm -rf /", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateEnum("mode", tt.value, "spline", "polygon", "pixel")
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateEnum(%q) error = %v, wantErr %v", tt.value, err, tt.wantErr)
			}
			if err != nil && !Is(err, ErrCodeInvalidInput) {
				t.Errorf("expected INVALID_INPUT, got %v", GetCode(err))
			}
		})
	}
}

func TestValidateRange(t *testing.T) {
	tests := []struct {
		value   int
		wantErr bool
	}{
		{0, false},
		{90, false},
		{180, false},
		{-1, true},
		{181, true},
	}

	for _, tt := range tests {
		err := ValidateRange("cornerThreshold", tt.value, 0, 180)
		if (err != nil) != tt.wantErr {
			t.Errorf("ValidateRange(%d) error = %v, wantErr %v", tt.value, err, tt.wantErr)
		}
	}
}

func TestValidateNonNegative(t *testing.T) {
	if err := ValidateNonNegative("filterSpeckle", 0); err != nil {
		t.Errorf("unexpected error for 0: %v", err)
	}
	if err := ValidateNonNegative("filterSpeckle", -3); err == nil {
		t.Error("expected error for -3")
	}
}

func TestParseInt(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    int
		wantOK  bool
		wantErr bool
	}{
		{"integer", "42", 42, true, false},
		{"padded", "  7 ", 7, true, false},
		{"negative", "-5", -5, true, false},
		{"float truncates", "4.9", 4, true, false},
		{"empty", "", 0, false, false},
		{"whitespace only", "   ", 0, false, false},
		{"garbage", "abc", 0, false, true},
		{"NaN", "NaN", 0, false, true},
		{"infinity", "Inf", 0, false, true},
		{"shell metachars", "8 && id", 0, false, true},
		{"huge exponent saturates", "1e30", math.MaxInt, true, false},
		{"huge integer saturates", "99999999999999999999", math.MaxInt, true, false},
		{"huge negative saturates", "-1e30", math.MinInt, true, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok, err := ParseInt("colorPrecision", tt.raw)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseInt(%q) error = %v, wantErr %v", tt.raw, err, tt.wantErr)
			}
			if ok != tt.wantOK {
				t.Errorf("ParseInt(%q) ok = %v, want %v", tt.raw, ok, tt.wantOK)
			}
			if got != tt.want {
				t.Errorf("ParseInt(%q) = %d, want %d", tt.raw, got, tt.want)
			}
		})
	}
}

func TestValidateToken(t *testing.T) {
	if err := ValidateToken("preset", "logo"); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if err := ValidateToken("preset", "lo\ngo"); err == nil {
		t.Error("expected error for control character")
	}
	if err := ValidateToken("preset", strings.Repeat("x", 65)); err == nil {
		t.Error("expected error for long token")
	}
}

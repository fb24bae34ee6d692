package constants

import "testing"

func TestMode_Valid(t *testing.T) {
	tests := []struct {
		name string
		mode Mode
		want bool
	}{
		{
			name: "single is valid",
			mode: ModeSingle,
			want: true,
		},
		{
			name: "batch is valid",
			mode: ModeBatch,
			want: true,
		},
		{
			name: "empty string is invalid",
			mode: Mode(""),
			want: false,
		},
		{
			name: "arbitrary string is invalid",
			mode: Mode("parallel"),
			want: false,
		},
		{
			name: "BATCH uppercase is invalid",
			mode: Mode("BATCH"),
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.mode.Valid(); got != tt.want {
				t.Errorf("Mode.Valid() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestMode_String(t *testing.T) {
	if got := ModeBatch.String(); got != "batch" {
		t.Errorf("ModeBatch.String() = %q, want %q", got, "batch")
	}
}

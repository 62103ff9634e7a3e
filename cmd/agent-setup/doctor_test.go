package main

import "testing"

func TestCMakeVersionOK(t *testing.T) {
	tests := []struct {
		name   string
		output string
		want   bool
	}{
		{
			name:   "recent cmake",
			output: "cmake version 3.28.3\n\nCMake suite maintained and supported by Kitware (kitware.com/cmake).\n",
			want:   true,
		},
		{
			name:   "exact minimum",
			output: "cmake version 3.14.0\n",
			want:   true,
		},
		{
			name:   "too old",
			output: "cmake version 3.10.2\n",
			want:   false,
		},
		{
			name:   "garbage output",
			output: "bash: cmake: command not found\n",
			want:   false,
		},
		{
			name:   "empty output",
			output: "",
			want:   false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := cmakeVersionOK(tt.output); got != tt.want {
				t.Errorf("cmakeVersionOK(%q) = %v, want %v", tt.output, got, tt.want)
			}
		})
	}
}

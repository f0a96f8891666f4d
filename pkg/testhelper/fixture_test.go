package testhelper

import "testing"

func TestSanitizeFilename(t *testing.T) {
	tests := []struct {
		name     string
		in       string
		expected string
	}{
		{
			name:     "simple, no changes",
			in:       "my_golden.json",
			expected: "zz_fixture_my_golden.json",
		},
		{
			name:     "complex",
			in:       "my_Go\\l'de`n.json",
			expected: "zz_fixture_my_Go_l_de_n.json",
		},
		{
			name:     "no double underscores",
			in:       "a_|",
			expected: "zz_fixture_a_",
		},
		{
			name:     "subtests",
			in:       "TestRender/markdown",
			expected: "zz_fixture_TestRender_markdown",
		},
		{
			name:     "last letters are kept",
			in:       "Zz",
			expected: "zz_fixture_Zz",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if result := sanitizeFilename(tc.in); result != tc.expected {
				t.Errorf("expected '%s', got '%s'", tc.expected, result)
			}
		})
	}
}

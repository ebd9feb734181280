package config

import "testing"

func TestAppEnvironment(t *testing.T) {
	cases := []struct {
		value string
		want  string
	}{
		{"", EnvironmentDevelopment},
		{"production", EnvironmentProduction},
		{"prod", EnvironmentProduction},
		{"stag", EnvironmentStaging},
		{" Staging ", EnvironmentStaging},
	}
	for _, c := range cases {
		t.Setenv(appEnvVar, c.value)
		if got := AppEnvironment(); got != c.want {
			t.Errorf("AppEnvironment with APP_ENV=%q = %q, want %q", c.value, got, c.want)
		}
	}
}

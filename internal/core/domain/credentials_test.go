package domain

import "testing"

func TestEnvironment_IsValid(t *testing.T) {
	tests := []struct {
		name string
		env  Environment
		want bool
	}{
		{"production", EnvironmentProduction, true},
		{"sandbox", EnvironmentSandbox, true},
		{"empty", Environment(""), false},
		{"unknown", Environment("staging"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.env.IsValid(); got != tt.want {
				t.Errorf("IsValid() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestOrgCredentials_Validate(t *testing.T) {
	valid := OrgCredentials{
		ClientID:    "3MVG9abc",
		RedirectURI: "https://app.example.com/api/auth/callback",
		Environment: EnvironmentSandbox,
		OrgName:     "Acme",
	}

	tests := []struct {
		name    string
		mutate  func(c *OrgCredentials)
		wantErr bool
	}{
		{"valid", func(c *OrgCredentials) {}, false},
		{"missing client id", func(c *OrgCredentials) { c.ClientID = "" }, true},
		{"missing redirect uri", func(c *OrgCredentials) { c.RedirectURI = "" }, true},
		{"bad environment", func(c *OrgCredentials) { c.Environment = "qa" }, true},
		{"org name optional", func(c *OrgCredentials) { c.OrgName = "" }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid
			tt.mutate(&c)
			err := c.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

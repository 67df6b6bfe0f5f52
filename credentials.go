package redditstream

// Credentials holds the five values Reddit's password-grant flow requires.
// All fields are mandatory; a Reddit "script" app provides the client ID and
// secret, and the account the app belongs to provides username and password.
type Credentials struct {
	// ClientID and ClientSecret identify the Reddit app.
	ClientID     string
	ClientSecret string

	// UserAgent identifies the application to Reddit. Should follow the
	// format "platform:app-name:version by /u/username".
	UserAgent string

	// Username and Password authenticate the account the stream runs as.
	Username string
	Password string
}

// validate reports the first missing field as a *ConfigError. It is called
// before any network activity so incomplete credentials never reach Reddit.
func (c *Credentials) validate() error {
	fields := []struct {
		name  string
		value string
	}{
		{"ClientID", c.ClientID},
		{"ClientSecret", c.ClientSecret},
		{"UserAgent", c.UserAgent},
		{"Username", c.Username},
		{"Password", c.Password},
	}

	for _, f := range fields {
		if f.value == "" {
			return &ConfigError{Field: f.name, Message: "is required"}
		}
	}
	return nil
}

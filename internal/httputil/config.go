package httputil

import "fmt"

// ClientConfig selects the authorization applied to outbound requests. At
// most one scheme may be configured; the zero value means no authorization.
type ClientConfig struct {
	BearerToken string `envconfig:"GPVIZ_CLIENT_BEARER_TOKEN"`
	BasicUser   string `envconfig:"GPVIZ_CLIENT_BASIC_USER"`
	BasicPass   string `envconfig:"GPVIZ_CLIENT_BASIC_PASS"`
}

func (c ClientConfig) Validate() error {
	if len(c.BearerToken) > 0 && len(c.BasicUser) > 0 {
		return fmt.Errorf("at most one of basic auth and bearer token must be configured")
	}
	if len(c.BasicUser) == 0 && len(c.BasicPass) > 0 {
		return fmt.Errorf("basic auth password is set without a user")
	}
	return nil
}

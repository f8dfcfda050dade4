// Package config resolves the server configuration.
//
// Values are taken, from lowest to highest precedence, from built-in
// defaults, an optional dotenv file, the process environment and command
// line flags. Every key is named after its environment variable:
//
//	PORT, HOST, MODE, SSE_TIMEOUT, MAX_SESSIONS
//	AUTH_ENABLED, PROTECT_STREAMABLE, THIS_HOSTNAME
//	OAUTH_CLIENT_ID, OAUTH_CLIENT_SECRET, OAUTH_ISSUER_URL
//	OAUTH_AUTHORIZATION_URL, OAUTH_TOKEN_URL
//	OAUTH_REVOCATION_URL, OAUTH_REGISTRATION_URL
//	OAUTH_JWT_SIGNING_KEY, OAUTH_JWT_ALGORITHM, OAUTH_JWT_AUDIENCE
//	CLIENT_STORE, VALKEY_ADDRESS, VALKEY_PASSWORD, VALKEY_DB
//	VALKEY_KEY_PREFIX, VALKEY_TLS
//	LOG_LEVEL, LOG_FORMAT
//
// Flags use the lower-case, dash-separated form of the same name
// (--auth-enabled, --valkey-address). Load validates the result and reports
// every problem at once in a ConfigurationErrorCollection.
//
// # Usage Examples
//
//	cfg, err := config.Load(config.LoadOptions{EnvFile: ".env", Flags: cmd.Flags()})
//	if err != nil {
//	    var cerrs config.ConfigurationErrorCollection
//	    if errors.As(err, &cerrs) {
//	        fmt.Fprintln(os.Stderr, cerrs.GetDetailedReport())
//	    }
//	    os.Exit(1)
//	}
//	fmt.Printf("Listening on %s\n", cfg.Server.Address())
package config

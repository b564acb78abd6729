// Command claritycast runs the ClarityCast API server and its command-line
// client.
//
//	claritycast serve                       start the HTTP API
//	claritycast clarify -m plan "..."       structure a thought
//	claritycast communicate --context technical,personal "..."
//	claritycast cache clear-expired         prune the fingerprint cache
//	claritycast migrate up                  apply the sql cache schema
//	claritycast health --ready              probe a running server
//
// Configuration is read from an optional YAML file (--config), .env files and
// CLARITYCAST_* environment variables, in that order of increasing priority.
package main

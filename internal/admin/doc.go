// Package admin is the operator plane: provider management, webhook event
// inspection and retry, and the security log views, all behind bearer-token
// auth. It never sits on the ingestion hot path.
package admin

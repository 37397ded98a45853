// Package commands defines the signclient CLI.
//
// Commands
//
//   - connect     Propose a session and print the pairing URI as text and QR
//   - pair        Join a pairing URI and approve or reject its proposal
//   - listen      Print incoming events, optionally echoing session requests
//   - sessions    List stored sessions with peer key fingerprints
//   - ping        Ping a session or pairing peer
//   - request     Send a session request and print the peer's result
//   - disconnect  End a session or pairing
//
// # Implementation
//
// The root command loads the configuration, builds an app.App and runs its
// Init before any subcommand, and closes it afterwards, so handlers share
// one relay connection and one storage handle.
package commands

// Package http serves git repositories over the smart HTTP protocol.
//
// Every request goes through a fixed route table. The first pattern that
// matches decides what is served:
//
//	POST {repo}/git-upload-pack            fetch negotiation
//	POST {repo}/git-receive-pack           push
//	GET  {repo}/info/refs                  ref advertisement, or the dumb refs file
//	GET  {repo}/HEAD, objects/info/*       plain text files
//	GET  {repo}/objects/xx/{38 hex}        loose objects
//	GET  {repo}/objects/pack/pack-*.pack   packs and their .idx files
//
// The repository identifier is validated before any filesystem access.
// Requests containing "." or ".." segments are rejected with 400, unmatched
// paths and missing repositories get 404, and a matched route used with the
// wrong method gets 405 (400 for clients older than HTTP/1.1).
//
// Pack exchanges are relayed to git without buffering. Response headers are
// committed only once git is running, so a launch failure still yields a 500,
// and after that point errors end the stream but never rewrite it.
//
// # Usage
//
//	root, _ := filesystem.Open("/srv/git")
//	handler := http.NewHandler(&http.HandlerConfig{
//	    Policy:        packway.AccessPolicy{AllowPush: packway.Bool(false)},
//	    WriteVerifier: verifier, // nil for public push
//	}, root, gitexec.NewFactory("git"))
//	http.ListenAndServe(":8080", handler.Router())
//
// Error bodies are plain text because git prints them to the user verbatim.
package http

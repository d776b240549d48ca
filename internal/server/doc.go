// Package server exposes the trick repository and the resolution engine
// over HTTP.
//
// Routes:
//
//	POST   /v1/tricks                        create a trick
//	GET    /v1/tricks                        list tricks
//	GET    /v1/tricks/{id}                   read a trick
//	PUT    /v1/tricks/{id}                   replace a trick
//	DELETE /v1/tricks/{id}                   delete a trick
//	POST   /v1/documents                     answer a text
//	GET    /v1/documents                     list answered texts
//	POST   /v1/documents:analyzeSyntax       parse a text
//	GET    /metrics                          Prometheus metrics
package server

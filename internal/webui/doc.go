// Package webui provides the server-rendered to-do list interface.
//
// # Overview
//
// Every route answers with either a full HTML page or a 303 redirect back
// to the list. Nothing is rendered on the client.
//
// # Routes
//
//	GET    /                    list page with the create form
//	POST   /todos               create, redirect to /
//	PUT    /todos/{id}/toggle   flip completed, redirect to /
//	GET    /todos/{id}/edit     edit form
//	PUT    /todos/{id}          replace the title, redirect to /
//	DELETE /todos/{id}          remove, redirect to /
//
// Any other method or path gets a 404 "page not found".
//
// # Method Override
//
// HTML forms can only submit GET and POST. A POST carrying _method=PUT,
// _method=PATCH or _method=DELETE (query string or form field) or an
// X-HTTP-Method-Override header is routed as that method.
//
// # Errors
//
// Store errors map onto plain text responses:
//
//   - Malformed id: 400 "invalid ID format"
//   - Unknown id: 404 "todo not found"
//   - Anything unexpected: 500 "internal server error", logged with details
//
// Invalid titles re-render the relevant form with a 400 and the message
// inline.
//
// # Duplicate Submissions
//
// The create form carries a one-time submission token. A second POST with
// the same token redirects to the list without creating another item.
//
// # Usage
//
//	ui, err := webui.New(store, webui.Config{Logger: logger})
//	if err != nil {
//		return err
//	}
//	defer ui.Close()
//	http.Handle("/", ui.Handler())
package webui

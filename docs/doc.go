// Package docs provides the OpenAPI documentation served at /swagger.json.
//
// folio API
//
//	@title			folio API
//	@version		1.0
//	@description	Scanned PDF to HTML extraction: upload a document, run vision OCR page by page, edit and export.
//
//	@contact.name	API Support
//	@contact.url	https://github.com/jackzampolin/folio
//
//	@license.name	MIT
//	@license.url	https://opensource.org/licenses/MIT
//
//	@host		localhost:8080
//	@BasePath	/
//
//	@schemes	http
package docs

//go:generate swag init -g ../cmd/folio/serve.go -o . --outputTypes go --parseInternal

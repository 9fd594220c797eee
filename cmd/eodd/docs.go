package main

// General API documentation for swaggo. Regenerate eodd/docs with `swag init -g cmd/eodd/docs.go -o docs`.
//
// @title           eodd API
// @version         1.0
// @description     HTTP API for the background worker: lifecycle control, state snapshots,
// @description     the CloudEvents event stream, queued logins and the weather feed.
//
// @license.name   MIT
// @license.url    https://opensource.org/licenses/MIT
//
// @BasePath  /
//
// @schemes http

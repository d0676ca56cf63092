// Package controller provides HTTP middlewares and helpers shared by the API
// server: access logging, CORS and pprof mounting.
package controller

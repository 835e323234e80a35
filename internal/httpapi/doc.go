// Package httpapi wires the HTTP surface of the license server.
//
// Two very different contracts live here. The legacy verification endpoint
// (GET /expireOff.aspx) always answers 200 with a plain-text body: either the
// two-line grant or a single newline, never anything else. Deployed
// terminals distinguish outcomes by body shape alone. The /api routes are an
// ordinary JSON admin surface over the repositories, with structured errors.
package httpapi

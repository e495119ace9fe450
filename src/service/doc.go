// Package service exposes a node over HTTP:
//
//	GET  /stats      node statistics
//	GET  /peers      remote addresses of open peer connections
//	GET  /chain      every block, genesis first
//	GET  /block/{i}  the block at index i
//	POST /block      append the JSON payload in the body
package service

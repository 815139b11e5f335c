package adminapi

import "log"

func logRequest(method, uri string, status int) {
	log.Printf("[api] %s %s %d", method, uri, status)
}

// Package cache implements the device-local offline cache for the swipe
// client: a full-replace snapshot of the latest job feed with a TTL, and a
// replaceable queue of swipe actions awaiting delivery to the server.
// Both sit on the transactional store from the store package and are exposed
// through a single Manager facade owning the store lifecycle.
package cache

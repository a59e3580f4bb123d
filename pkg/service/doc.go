// Package service holds the business logic of the mock platform:
// public-id allocation, endpoint and variant lifecycle, the per-user
// active-override resolution, and account management. Services are
// storage-agnostic and talk to a store.Store.
package service

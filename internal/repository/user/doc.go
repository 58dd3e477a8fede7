// Package user implements persistence for accounts.
package user

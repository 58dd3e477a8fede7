// Package user holds the account model referenced by module memberships.
package user

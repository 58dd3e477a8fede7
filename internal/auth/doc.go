// Package auth mints and validates user access tokens and hashes user
// passwords. Tokens are HS256 JWTs carrying the user id and username;
// passwords are stored as bcrypt hashes.
package auth

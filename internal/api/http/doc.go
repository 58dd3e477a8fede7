// Package http is the REST surface of the farming server: account
// registration and login, module inspection and control, and alarm CRUD.
// Alarm mutations go through the scheduler so the stored task handle always
// tracks the persisted state.
package http

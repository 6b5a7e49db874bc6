// Package models defines the domain records shared by storage, the
// balance engine and the RPC layer.
//
// A Group owns its Members and Expenses; nothing is shared across groups.
// Members and expenses refer to each other by ID string, never by pointer.
// Expenses are append-only: they are created and deleted, never edited.
//
// Balances and settlements are not models. They are derived on every read
// by the calculator package and never persisted.
package models

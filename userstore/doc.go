// Package userstore provides an in-memory [farmAuth.UserStore] for development
// servers and tests. Records live only as long as the process.
package userstore

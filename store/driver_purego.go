//go:build !cgo

package store

const defaultDriver = DriverPureGo

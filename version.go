// Package adbridge locates and drives the Android Debug Bridge.
package adbridge

// Version is the adbridge release version.
const Version = "0.3.0"

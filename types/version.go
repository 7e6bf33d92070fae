package types

// Version is the canonical project version.
// The CLI and the stub backend report this version; the capture format
// carries its own CaptureFormatVersion and evolves independently.
//
// This version is authoritative. Release tags must reference this constant.
const Version = "0.2.0"

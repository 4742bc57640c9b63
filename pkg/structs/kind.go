package structs

// Kind is the variant of a backup source or target.
type Kind string

const (
	// KindFilesystem is a directory tree on the local machine
	KindFilesystem Kind = "filesystem"

	// KindPeer is a remote b2b peer reached over the network
	KindPeer Kind = "peer"
)

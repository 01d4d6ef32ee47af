package sandlib

import (
	ns "github.com/AnishMulay/sanddfs/internal/naming_service"
)

// SanddfsClient is a high-level client over one naming service. File data is
// read and written directly against the storage node the naming service
// hands out for each file.
//
// ReadFile and WriteFile take the file's lock around the whole transfer.
// ReadChunk and WriteChunk bound how much data one storage call carries.
type SanddfsClient struct {
	Naming     ns.NamingService
	ReadChunk  int
	WriteChunk int
}

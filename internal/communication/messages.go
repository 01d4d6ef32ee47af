package communication

import "github.com/AnishMulay/sanddfs/internal/dfs_path"

// Naming service messages.
const (
	MessageTypeLock            = "naming.lock"
	MessageTypeUnlock          = "naming.unlock"
	MessageTypeIsDirectory     = "naming.is_directory"
	MessageTypeList            = "naming.list"
	MessageTypeCreateFile      = "naming.create_file"
	MessageTypeCreateDirectory = "naming.create_directory"
	MessageTypeDelete          = "naming.delete"
	MessageTypeGetStorage      = "naming.get_storage"
)

// Registration messages.
const (
	MessageTypeRegister = "registration.register"
)

// Storage node data-plane messages.
const (
	MessageTypeSize  = "storage.size"
	MessageTypeRead  = "storage.read"
	MessageTypeWrite = "storage.write"
)

// Storage node control-plane messages.
const (
	MessageTypeCommandCreate = "command.create"
	MessageTypeCommandDelete = "command.delete"
	MessageTypeCommandCopy   = "command.copy"
)

type PathRequest struct {
	Path dfs_path.Path `json:"path"`
}

type LockRequest struct {
	Path      dfs_path.Path `json:"path"`
	Exclusive bool          `json:"exclusive"`
}

type BoolResponse struct {
	Value bool `json:"value"`
}

type ListResponse struct {
	Names []string `json:"names"`
}

// GetStorageResponse names the client address of the chosen storage node.
type GetStorageResponse struct {
	ClientAddress string `json:"client_address"`
}

// RegisterRequest identifies a storage node by the addresses its two
// interfaces listen on.
type RegisterRequest struct {
	ClientAddress  string          `json:"client_address"`
	CommandAddress string          `json:"command_address"`
	Files          []dfs_path.Path `json:"files"`
}

type RegisterResponse struct {
	Rejected []dfs_path.Path `json:"rejected"`
}

type SizeResponse struct {
	Size int64 `json:"size"`
}

type ReadRequest struct {
	Path   dfs_path.Path `json:"path"`
	Offset int64         `json:"offset"`
	Length int           `json:"length"`
}

type WriteRequest struct {
	Path   dfs_path.Path `json:"path"`
	Offset int64         `json:"offset"`
	Data   []byte        `json:"data"`
}

type CopyRequest struct {
	Path          dfs_path.Path `json:"path"`
	SourceAddress string        `json:"source_address"`
}

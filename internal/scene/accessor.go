package scene

import "errors"

// Kind classifies an object by the data block it carries.
type Kind string

const (
	KindMesh     Kind = "mesh"
	KindArmature Kind = "armature"
	KindOther    Kind = "other"
)

// Label is the capitalised form used in finding messages.
func (k Kind) Label() string {
	switch k {
	case KindMesh:
		return "Mesh"
	case KindArmature:
		return "Armature"
	default:
		return "Object"
	}
}

var (
	ErrObjectNotFound = errors.New("object not found")
	ErrBoneNotFound   = errors.New("bone not found")
	ErrWrongKind      = errors.New("object has wrong kind")
	ErrNameTaken      = errors.New("name already in use")
	ErrInvalidName    = errors.New("invalid name")
)

// Accessor is the narrow view of a host-owned scene the validation core
// works against. Objects are addressed by name; every call may fail because
// the data lives in host memory that can change underneath the caller.
type Accessor interface {
	// ObjectNames lists object names in document order.
	ObjectNames() ([]string, error)
	ObjectKind(obj string) (Kind, error)
	RenameObject(obj, name string) error

	// DataName and RenameData address the mesh or armature data block owned
	// by obj. Objects of KindOther report ErrWrongKind.
	DataName(obj string) (string, error)
	RenameData(obj, name string) error

	// Bones and RenameBone are only valid on armature objects.
	Bones(obj string) ([]string, error)
	RenameBone(obj, bone, name string) error
}

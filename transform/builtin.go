package transform

// Voxel-to-nanometer conversions for the datasets neuprep handles.
const (
	FlyWireVoxel   = "FLYWIRE_VOXEL"
	FlyWire        = "FLYWIRE"
	HemibrainVoxel = "HEMIBRAIN_VOXEL"
	Hemibrain      = "HEMIBRAIN"
)

// Builtin returns a registry with the dataset voxel size conversions.
// Registrations between template brains must be added by the caller.
func Builtin() *Registry {
	r := NewRegistry()
	r.Register(FlyWireVoxel, FlyWire, Scale(4, 4, 40))
	r.Register(HemibrainVoxel, Hemibrain, Scale(8, 8, 8))
	return r
}

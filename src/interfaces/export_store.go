package interfaces

// -----------------------------------------------------------------------------
// IExportStore keeps finished downloads (GIF captures) for a short while.
// -----------------------------------------------------------------------------

type IExportStore interface {

	// Put stores data under a download file name and returns its URL.
	Put(name string, data []byte) string

	// Get returns a stored export by id.
	Get(id string) (name string, data []byte, ok bool)
}

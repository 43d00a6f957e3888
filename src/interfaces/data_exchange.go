package interfaces

import "cheese-stick/src/models"

// -----------------------------------------------------------------------------
// IDataExchanger pushes dashboard frames to connected viewers.
// -----------------------------------------------------------------------------

type IDataExchanger interface {

	// Broadcast pushes a frame to every connected client.
	Broadcast(state *models.MDashboardState)

	// -----------------------------------------------------------------------------

	// UpdateLatest records the frame sent to newly connected clients without broadcasting.
	UpdateLatest(state *models.MDashboardState)
}

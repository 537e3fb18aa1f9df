package messages

import "time"

// TickMsg asks the dashboard to re-read tunnel state.
type TickMsg time.Time

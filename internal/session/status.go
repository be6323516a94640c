package session

// StatusType selects how a status message is styled
type StatusType string

const (
	StatusSuccess StatusType = "success"
	StatusError   StatusType = "error"
	StatusInfo    StatusType = "info"
)

// Status is the single notification slot's content.
// ID increases with every message shown and identifies it for dismissal.
type Status struct {
	ID      uint64
	Message string
	Type    StatusType
}

// ShowStatus replaces the current status with msg and returns its id.
// Success messages dismiss themselves after the configured delay unless
// another message replaced them first.
func (c *Controller) ShowStatus(msg string, typ StatusType) uint64 {
	c.mu.Lock()
	st := c.showLocked(msg, typ)
	c.mu.Unlock()
	c.notify()
	return st.ID
}

func (c *Controller) showLocked(msg string, typ StatusType) Status {
	c.statusID++
	id := c.statusID
	c.st.status = &Status{ID: id, Message: msg, Type: typ}

	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
	if typ == StatusSuccess {
		c.timer = c.afterFunc(c.dismissAfter, func() { c.DismissStatus(id) })
	}

	if c.onStatus != nil {
		c.onStatus(*c.st.status)
	}

	switch typ {
	case StatusError:
		c.logger.Warn().Uint64("status_id", id).Msg(msg)
	default:
		c.logger.Debug().Uint64("status_id", id).Str("type", string(typ)).Msg(msg)
	}
	return *c.st.status
}

// DismissStatus removes the status with the given id if it is still shown.
// It reports whether anything was removed.
func (c *Controller) DismissStatus(id uint64) bool {
	c.mu.Lock()
	if c.st.status == nil || c.st.status.ID != id {
		c.mu.Unlock()
		return false
	}
	c.st.status = nil
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
	c.mu.Unlock()
	c.notify()
	return true
}

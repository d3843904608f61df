package signal

func (ctl *Controller) handlePing(conn *WsSignalConn) {
	frame, err := marshalEnvelope("pong", nil)
	if err != nil {
		return
	}
	_ = conn.TrySend(frame)
}

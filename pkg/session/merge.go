package session

// Merge combines an incoming partial update with the currently stored value.
//
// For every optional field the result takes the update's value when present
// and the existing value otherwise, so a field never goes from present back to
// absent. AudioFormat and PairVerified have no absent state; their zero values
// (AudioFormatUnknown, PairVerificationUnknown) count as absent.
//
// Neither argument is modified. The result carries the update's key.
func Merge(existing, update *Session) *Session {
	if existing == nil {
		return update.Clone()
	}
	if update == nil {
		return existing.Clone()
	}

	m := update.Clone()
	e := existing

	m.EcdhOurs = orBytes(m.EcdhOurs, e.EcdhOurs)
	m.EcdhTheirs = orBytes(m.EcdhTheirs, e.EcdhTheirs)
	m.EdTheirs = orBytes(m.EdTheirs, e.EdTheirs)
	m.EcdhShared = orBytes(m.EcdhShared, e.EcdhShared)
	if !m.PairVerified.IsKnown() {
		m.PairVerified = e.PairVerified
	}

	m.KeyMsg = orBytes(m.KeyMsg, e.KeyMsg)
	m.AesKey = orBytes(m.AesKey, e.AesKey)
	m.AesIV = orBytes(m.AesIV, e.AesIV)
	m.DecryptedAesKey = orBytes(m.DecryptedAesKey, e.DecryptedAesKey)

	m.StreamConnectionID = orPtr(m.StreamConnectionID, e.StreamConnectionID)
	if m.AudioFormat == AudioFormatUnknown {
		m.AudioFormat = e.AudioFormat
	}
	m.Mirroring = orPtr(m.Mirroring, e.Mirroring)

	m.SPSPPS = orBytes(m.SPSPPS, e.SPSPPS)
	m.PTS = orPtr(m.PTS, e.PTS)
	m.WidthSource = orPtr(m.WidthSource, e.WidthSource)
	m.HeightSource = orPtr(m.HeightSource, e.HeightSource)

	m.DacpID = orPtr(m.DacpID, e.DacpID)
	if !m.DacpEndpoint.IsValid() {
		m.DacpEndpoint = e.DacpEndpoint
	}

	m.MirroringListener = orListener(m.MirroringListener, e.MirroringListener)
	m.StreamingListener = orListener(m.StreamingListener, e.StreamingListener)
	m.AudioControlListener = orListener(m.AudioControlListener, e.AudioControlListener)

	return m
}

func orBytes(update, existing []byte) []byte {
	if update != nil {
		return update
	}
	return cloneBytes(existing)
}

func orPtr[T any](update, existing *T) *T {
	if update != nil {
		return update
	}
	return clonePtr(existing)
}

func orListener(update, existing Listener) Listener {
	if update != nil {
		return update
	}
	return existing
}

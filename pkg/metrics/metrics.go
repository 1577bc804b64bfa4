package metrics

// RecordCommitRound records the terminal result of one 3PC round and its
// wall-clock duration.
func (r *Registry) RecordCommitRound(result string, seconds float64) {
	r.CommitRoundsTotal.WithLabelValues(result).Inc()
	r.CommitRoundDuration.Observe(seconds)
}

// RecordVote records a vote this replica cast as a participant.
func (r *Registry) RecordVote(vote string) {
	r.VotesTotal.WithLabelValues(vote).Inc()
}

// RecordElection records the outcome of an election this replica ran.
func (r *Registry) RecordElection(result string) {
	r.ElectionsTotal.WithLabelValues(result).Inc()
}

// SetCommitIter reports the current commit round counter.
func (r *Registry) SetCommitIter(iter int) {
	r.CurrentCommitIter.Set(float64(iter))
}

// RecordHeartbeatSent records a heartbeat sent to peer.
func (r *Registry) RecordHeartbeatSent(peer string) {
	r.HeartbeatsSentTotal.WithLabelValues(peer).Inc()
}

// RecordHeartbeatReceived records a heartbeat received from peer.
func (r *Registry) RecordHeartbeatReceived(peer string) {
	r.HeartbeatsReceivedTotal.WithLabelValues(peer).Inc()
}

// SetAliveParticipants reports the current count of live participants.
func (r *Registry) SetAliveParticipants(n int) {
	r.AliveParticipants.Set(float64(n))
}

// SetRole reports the role this replica currently announces.
func (r *Registry) SetRole(role string) {
	for _, candidate := range []string{"participant", "coordinator", "observer"} {
		if candidate == role {
			r.CurrentRole.WithLabelValues(candidate).Set(1)
		} else {
			r.CurrentRole.WithLabelValues(candidate).Set(0)
		}
	}
}

// SetSongListSize reports the number of songs held locally.
func (r *Registry) SetSongListSize(n int) {
	r.SongListSize.Set(float64(n))
}

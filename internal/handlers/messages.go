package handlers

const (
	msgPong            = "Pong!"
	msgConnected       = "🟢 Connected to voice channel `%s`."
	msgNoSuchChannel   = "⚠ The specified voice channel does not exist."
	msgJoinFailed      = "⚠ Failed to join the voice channel."
	msgDisconnected    = "🔴 Disconnected from the voice channel."
	msgNoConnection    = "⚠ There is no active voice connection."
	msgPlayingNext     = "▶ Playing `%s` next."
	msgInvalidVideo    = "⚠ Not a valid YouTube URL or video id."
	msgPlaylistLoaded  = "📃 Loaded %d tracks."
	msgInvalidPlaylist = "⚠ Not a valid playlist URL or id."
	msgPlaylistEmpty   = "⚠ The playlist is empty or could not be loaded."
	msgSearchPlaying   = "🔍 Playing **%s** next."
	msgNoResults       = "⚠ No results for `%s`."
	msgPaused          = "⏸ Paused."
	msgResumed         = "▶ Resumed."
	msgNothingPlaying  = "⚠ Nothing is playing."
	msgSkipped         = "⏭ Skipped."
	msgShuffled        = "🔀 Shuffled the queue."
	msgSlowDown        = "⚠ Slow down a little."
	msgVolumeSet       = "🔊 Volume set to %d%%."
	msgVolumeRange     = "⚠ Volume must be between 0 and 100."
	msgChimeOn         = "🔔 Hourly chime enabled."
	msgChimeOff        = "🔕 Hourly chime disabled."
	msgUnknown         = "⚠ Unknown command."
	msgInternal        = "⚠ Something went wrong."
	msgMissingArgument = "⚠ Missing argument `%s`."
)

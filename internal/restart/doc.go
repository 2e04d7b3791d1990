// Package restart tracks when cameras were last restarted so live viewers know
// their stream connections are stale.
//
// The restart record is a small JSON object mapping camera ids to epoch
// milliseconds, shared by every process on the host through a file:
//
//	{"0": 1760000000123, "3": 1760000000123}
//
// Id "0" stands for all cameras. Recording a restart for one camera also bumps
// "0", so every viewer observes max(record[id], record["0"]).
//
// Readers tolerate the file being absent, empty, malformed or unreadable and
// treat all of those as "no restart observed". Writes that cannot reach the file
// are kept in memory for the life of the process.
//
// Viewers learn about restarts three ways: an initial Observe when they start, a
// periodic poll, and the in-process events.CameraRestartedEvent broadcast. When the
// store is file backed, Coordinator.StartWatching turns file changes made by other
// processes into the same broadcast. A Watcher only fires on timestamps strictly
// newer than the last one it acted on, so repeated notifications of one restart
// cause a single reconnect.
package restart

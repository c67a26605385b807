// Package daemon ties the queue store, workflow supervisor, and HTTP
// control surface into one long-running process.
//
// Start acquires a lock file so only one daemon runs per machine, resets
// jobs interrupted by the previous shutdown, starts the supervisor, and
// serves the JSON API. A udev netlink listener wakes the drive watchers
// early when the kernel reports new disc media; detection itself stays
// with the watchers' polling so a missed event costs one poll interval at
// most. Stop tears everything down in reverse and releases the lock.
package daemon

// Package fileutil scans folders for original images.
//
// A comparison accepts folders as well as single images. Folders are
// expanded into the image files they contain, optionally descending into
// subfolders. Hidden folders are always skipped.
//
// Paths are returned joined to the scanned folder rather than made absolute,
// since they are recorded in the completed-task log and must stay stable
// across resumed runs started from the same working directory.
package fileutil

// Package catalog loads compiled animation catalogs and serves them to the
// matcher as a read-only registry.
//
// Catalogs are authored in CUE (LoadDir) or shipped as compiled JSON
// (LoadJSON). Definitions that fail validation stay registered but are
// never usable; the first attempt to use one raises a single notification.
package catalog

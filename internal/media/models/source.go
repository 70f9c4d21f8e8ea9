package models

import "io"

// MediaSource is either Uploaded or Referenced.
type MediaSource interface {
	storageType() StorageType
}

// Uploaded is a file whose bytes arrived with the request.
type Uploaded struct {
	File io.Reader
	Name string
	Type string
	Size int64
}

// Referenced points at content hosted elsewhere.
type Referenced struct {
	URL  string
	Name string
	Type string
	Size int64
}

func (Uploaded) storageType() StorageType   { return LocalStorage }
func (Referenced) storageType() StorageType { return URLStorage }

func StorageTypeOf(src MediaSource) StorageType { return src.storageType() }

// LocationInput is either Coordinates or PlaceName.
type LocationInput interface {
	locationInput()
}

type Coordinates struct {
	Lat float64
	Lon float64
}

type PlaceName struct {
	City string
}

func (Coordinates) locationInput() {}
func (PlaceName) locationInput()   {}

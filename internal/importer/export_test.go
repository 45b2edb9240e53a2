package importer

// Fakes shared with the external mock-based tests.

func NewZStackReader() Reader { return newFakeReader(zStack()) }

func NewFakeStore() MetadataStore { return newFakeStore() }

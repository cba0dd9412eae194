package service

// Row ids shared by the service tests. Every table is keyed by UUID.
const (
	classC1    = "0b6f3a52-8c1e-4d2a-9f10-5a7c3e1d2b01"
	classC2    = "0b6f3a52-8c1e-4d2a-9f10-5a7c3e1d2b02"
	itemCW1    = "7d2e91c4-3f5b-4a86-b0d7-2c8e6f4a1c01"
	itemCW2    = "7d2e91c4-3f5b-4a86-b0d7-2c8e6f4a1c02"
	studentS1  = "3a9d5e7f-1b2c-4d3e-8f4a-6b7c8d9e0f01"
	studentS2  = "3a9d5e7f-1b2c-4d3e-8f4a-6b7c8d9e0f02"
	student1   = "3a9d5e7f-1b2c-4d3e-8f4a-6b7c8d9e0f11"
	teacher1   = "e4c1b7a2-5d6f-4e8a-9b3c-1d2e3f4a5b01"
	teacher2   = "e4c1b7a2-5d6f-4e8a-9b3c-1d2e3f4a5b02"
	teacher3   = "e4c1b7a2-5d6f-4e8a-9b3c-1d2e3f4a5b03"
)

package metadata

import "github.com/anne-tanne/metadata-change-app/internal/domain"

// SupportedFields returns the editable field catalogue per section
func SupportedFields() map[string][]string {
	return map[string][]string{
		domain.SectionEXIF: {
			"Make", "Model", "Software", "DateTime", "Artist", "Copyright",
			"ImageDescription", "Orientation", "XResolution", "YResolution",
			"ResolutionUnit", "ColorSpace", "ExifVersion", "ComponentsConfiguration",
			"FlashPixVersion", "PixelXDimension", "PixelYDimension",
			"DateTimeOriginal", "DateTimeDigitized", "SubsecTime", "SubsecTimeOriginal",
			"SubsecTimeDigitized", "ExposureTime", "FNumber", "ExposureProgram",
			"ISOSpeedRatings", "CompressedBitsPerPixel", "ShutterSpeedValue",
			"ApertureValue", "BrightnessValue", "ExposureBiasValue", "MaxApertureValue",
			"SubjectDistance", "MeteringMode", "LightSource", "Flash", "FocalLength",
			"SubjectArea", "MakerNote", "UserComment", "RelatedSoundFile", "FlashEnergy",
			"SpatialFrequencyResponse", "FocalPlaneXResolution", "FocalPlaneYResolution",
			"FocalPlaneResolutionUnit", "SubjectLocation", "ExposureIndex", "SensingMethod",
			"FileSource", "SceneType", "CFAPattern", "CustomRendered", "ExposureMode",
			"WhiteBalance", "DigitalZoomRatio", "FocalLengthIn35mmFilm", "SceneCaptureType",
			"GainControl", "Contrast", "Saturation", "Sharpness", "DeviceSettingDescription",
			"SubjectDistanceRange", "GPSLatitude", "GPSLongitude", "GPSAltitude",
		},
		domain.SectionIPTC: {
			"ObjectName", "EditStatus", "EditorialUpdate", "Urgency", "SubjectReference",
			"Category", "SupplementalCategories", "FixtureIdentifier", "Keywords",
			"ContentLocationCode", "ContentLocationName", "ReleaseDate", "ReleaseTime",
			"ExpirationDate", "ExpirationTime", "SpecialInstructions", "ActionAdvised",
			"ReferenceService", "ReferenceDate", "ReferenceNumber", "DateCreated",
			"TimeCreated", "DigitalCreationDate", "DigitalCreationTime", "OriginatingProgram",
			"ProgramVersion", "ObjectCycle", "ByLine", "ByLineTitle", "City", "SubLocation",
			"ProvinceState", "CountryPrimaryLocationCode", "CountryPrimaryLocationName",
			"OriginalTransmissionReference", "Headline", "Credit", "Source", "CopyrightNotice",
			"Contact", "CaptionAbstract", "WriterEditor", "ImageType", "ImageOrientation",
			"LanguageIdentifier",
		},
		domain.SectionCustom: {
			"Title", "Description", "Keywords", "Author", "Copyright", "Rating",
			"Comments", "Location", "Tags", "Category", "Subject", "Creator",
			"Publisher", "Contributor", "Language", "Identifier", "Format",
			"Source", "Relation", "Coverage", "Rights",
		},
	}
}

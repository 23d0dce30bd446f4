// Package landuse holds the CORINE land-cover crosswalk: the fixed
// mapping from fine-grained CORINE codes to the coarse ordinal classes
// the change model works in, plus the cropland transition rule.
package landuse

// Classes in the coarse scheme. 0 is the null class for cover types the
// model ignores; 999 is the explicit nodata class.
const (
	ClassNull          = 0
	ClassUrban         = 1
	ClassIndustrial    = 2
	ClassArable        = 3
	ClassPermanent     = 4
	ClassPastures      = 5
	ClassForestMature  = 6
	ClassTransWoodland = 7
	ClassSparseVeg     = 14
	ClassForestYoung   = 15
	ClassNoData        = 999
)

// Crosswalk is an immutable code-to-class mapping. It is passed by
// value into the components that need it rather than read from package
// state, so tests can substitute alternate tables.
type Crosswalk struct {
	classes       map[int]int
	names         map[int]string
	croplandCodes map[int]bool
	croplandClass int
	nodataClass   int
}

// Default returns the crosswalk versioned with this pipeline, covering
// the CORINE level-3 legend. The mapping is total over the code domain:
// ClassOf falls back to the nodata class for anything unlisted.
func Default() *Crosswalk {
	return &Crosswalk{
		classes: map[int]int{
			111: ClassUrban,      // continuous urban fabric
			112: ClassUrban,      // discontinuous urban fabric
			121: ClassIndustrial, // industrial or commercial units
			122: ClassNull,       // road and rail networks
			123: ClassNull,       // port areas
			124: ClassNull,       // airports
			131: ClassNull,       // mineral extraction sites
			132: ClassNull,       // dump sites
			133: ClassNull,       // construction sites
			141: ClassNull,       // green urban areas
			142: ClassNull,       // sport and leisure facilities
			211: ClassArable,     // non-irrigated arable land
			212: ClassArable,     // permanently irrigated land
			213: ClassArable,     // rice fields
			221: ClassPermanent,  // vineyards
			222: ClassPermanent,  // fruit trees and berry plantations
			223: ClassPermanent,  // olive groves
			231: ClassPastures,   // pastures
			241: ClassArable,     // annual crops with permanent crops
			242: ClassArable,     // complex cultivation patterns
			243: ClassArable,     // land principally agricultural
			244: ClassPastures,   // agro-forestry areas
			311: ClassForestMature,
			312: ClassForestMature,
			313: ClassForestMature,
			321: ClassTransWoodland, // natural grasslands
			322: ClassTransWoodland, // moors and heathland
			323: ClassTransWoodland, // sclerophyllous vegetation
			324: ClassForestYoung,   // transitional woodland-shrub
			331: ClassSparseVeg,     // beaches, dunes, sands
			332: ClassSparseVeg,     // bare rocks
			333: ClassSparseVeg,     // sparsely vegetated areas
			334: ClassTransWoodland, // burnt areas
			335: ClassNull,          // glaciers and perpetual snow
			411: ClassNull,          // inland marshes
			412: ClassNull,          // peat bogs
			421: ClassNull,          // salt marshes
			422: ClassNull,          // salines
			423: ClassNull,          // intertidal flats
			511: ClassNull,          // water courses
			512: ClassNull,          // water bodies
			521: ClassNull,          // coastal lagoons
			522: ClassNull,          // estuaries
			523: ClassNull,          // sea and ocean
			999: ClassNoData,
		},
		names: map[int]string{
			ClassNull:          "null",
			ClassUrban:         "Urban",
			ClassIndustrial:    "Industrial",
			ClassArable:        "Arable",
			ClassPermanent:     "PermanentCrops",
			ClassPastures:      "Pastures",
			ClassForestMature:  "ForestsMature",
			ClassTransWoodland: "TransWoodlandShrub",
			ClassSparseVeg:     "SHVA",
			ClassForestYoung:   "ForestYoung",
			ClassNoData:        "nodata",
		},
		croplandCodes: map[int]bool{
			211: true, 212: true, 213: true,
			241: true, 242: true, 243: true,
		},
		croplandClass: ClassArable,
		nodataClass:   ClassNoData,
	}
}

// ClassOf converts a CORINE code to its coarse class. Total over the
// full code domain: unmapped codes yield the nodata class.
func (c *Crosswalk) ClassOf(code int) int {
	if cls, ok := c.classes[code]; ok {
		return cls
	}
	return c.nodataClass
}

// NoDataClass returns the sentinel class for unmapped or missing codes.
func (c *Crosswalk) NoDataClass() int { return c.nodataClass }

// CroplandClass returns the coarse class representing cropland.
func (c *Crosswalk) CroplandClass() int { return c.croplandClass }

// ClassName returns the human-readable name of a class, or "unknown".
func (c *Crosswalk) ClassName(class int) string {
	if n, ok := c.names[class]; ok {
		return n
	}
	return "unknown"
}

// IsCroplandTransition reports whether a transition code represents a
// change to cropland. True when the target-class digit equals the
// cropland class, or when the raw code is one of the enumerated
// cropland CORINE codes. The two conditions are not redundant: 211 is
// cropland by the code list even though it does not end in 3.
func (c *Crosswalk) IsCroplandTransition(code int) bool {
	if code < 0 {
		return false
	}
	if code%10 == c.croplandClass {
		return true
	}
	return c.croplandCodes[code]
}

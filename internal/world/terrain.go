package world

import "fmt"

type Terrain string

const (
	TerrainVoid  Terrain = "VOID"
	TerrainGrass Terrain = "GRASS"
	TerrainWater Terrain = "WATER"
	TerrainStone Terrain = "STONE"
	TerrainDirt  Terrain = "DIRT"
	TerrainWall  Terrain = "WALL"
	TerrainLava  Terrain = "LAVA"
)

// Terrains lists every terrain in palette order.
var Terrains = []Terrain{
	TerrainVoid,
	TerrainGrass,
	TerrainWater,
	TerrainStone,
	TerrainDirt,
	TerrainWall,
	TerrainLava,
}

func ParseTerrain(s string) (Terrain, error) {
	for _, t := range Terrains {
		if string(t) == s {
			return t, nil
		}
	}
	return "", fmt.Errorf("unknown terrain %q", s)
}

func (t *Terrain) UnmarshalText(b []byte) error {
	parsed, err := ParseTerrain(string(b))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

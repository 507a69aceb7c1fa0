package colmap

import (
	"database/sql"
	"encoding/binary"
	"fmt"
	"math"

	_ "modernc.org/sqlite"
)

// Database wraps the COLMAP project database. Tables mirror the schema
// COLMAP creates for itself so the tool opens the file without migration;
// only cameras and images are populated, the feature tables stay empty.
type Database struct {
	db *sql.DB
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS cameras (
		camera_id INTEGER PRIMARY KEY AUTOINCREMENT NOT NULL,
		model INTEGER NOT NULL,
		width INTEGER NOT NULL,
		height INTEGER NOT NULL,
		params BLOB,
		prior_focal_length INTEGER NOT NULL)`,
	`CREATE TABLE IF NOT EXISTS images (
		image_id INTEGER PRIMARY KEY AUTOINCREMENT NOT NULL,
		name TEXT NOT NULL UNIQUE,
		camera_id INTEGER NOT NULL,
		prior_qw REAL,
		prior_qx REAL,
		prior_qy REAL,
		prior_qz REAL,
		prior_tx REAL,
		prior_ty REAL,
		prior_tz REAL,
		CONSTRAINT image_id_check CHECK(image_id >= 0 and image_id < 2147483647),
		FOREIGN KEY(camera_id) REFERENCES cameras(camera_id))`,
	`CREATE TABLE IF NOT EXISTS keypoints (
		image_id INTEGER PRIMARY KEY NOT NULL,
		rows INTEGER NOT NULL,
		cols INTEGER NOT NULL,
		data BLOB,
		FOREIGN KEY(image_id) REFERENCES images(image_id) ON DELETE CASCADE)`,
	`CREATE TABLE IF NOT EXISTS descriptors (
		image_id INTEGER PRIMARY KEY NOT NULL,
		rows INTEGER NOT NULL,
		cols INTEGER NOT NULL,
		data BLOB,
		FOREIGN KEY(image_id) REFERENCES images(image_id) ON DELETE CASCADE)`,
	`CREATE TABLE IF NOT EXISTS matches (
		pair_id INTEGER PRIMARY KEY NOT NULL,
		rows INTEGER NOT NULL,
		cols INTEGER NOT NULL,
		data BLOB)`,
	`CREATE TABLE IF NOT EXISTS two_view_geometries (
		pair_id INTEGER PRIMARY KEY NOT NULL,
		rows INTEGER NOT NULL,
		cols INTEGER NOT NULL,
		data BLOB,
		config INTEGER NOT NULL,
		F BLOB,
		E BLOB,
		H BLOB,
		qvec BLOB,
		tvec BLOB)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS index_name ON images(name)`,
}

// OpenDatabase creates or opens the database file and ensures the schema.
func OpenDatabase(path string) (*Database, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("colmap: open database %s: %w", path, err)
	}
	for _, stmt := range schema {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("colmap: create schema: %w", err)
		}
	}
	return &Database{db: db}, nil
}

// AddCamera inserts one camera row and returns its identifier. Params are
// stored as a little-endian float64 blob, matching COLMAP's own layout.
func (d *Database) AddCamera(model, width, height int, params []float64, priorFocalLength bool) (int64, error) {
	blob := make([]byte, 8*len(params))
	for i, v := range params {
		binary.LittleEndian.PutUint64(blob[8*i:], math.Float64bits(v))
	}

	prior := 0
	if priorFocalLength {
		prior = 1
	}
	res, err := d.db.Exec(
		`INSERT INTO cameras (model, width, height, params, prior_focal_length) VALUES (?, ?, ?, ?, ?)`,
		model, width, height, blob, prior,
	)
	if err != nil {
		return 0, fmt.Errorf("colmap: add camera: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("colmap: camera id: %w", err)
	}
	return id, nil
}

// AddImage inserts one image row with an explicit identifier so the
// database order matches images.txt. Pose priors stay unset.
func (d *Database) AddImage(imageID int64, name string, cameraID int64) error {
	_, err := d.db.Exec(
		`INSERT INTO images (image_id, name, camera_id) VALUES (?, ?, ?)`,
		imageID, name, cameraID,
	)
	if err != nil {
		return fmt.Errorf("colmap: add image %s: %w", name, err)
	}
	return nil
}

// Close releases the underlying handle.
func (d *Database) Close() error {
	if err := d.db.Close(); err != nil {
		return fmt.Errorf("colmap: close database: %w", err)
	}
	return nil
}

package main

import (
	"bufio"
	"encoding/csv"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"salon-consult/backend/internal/routine"
	"salon-consult/backend/internal/store"
)

func main() {
	var (
		dbPath       = flag.String("db", filepath.FromSlash("data/salon-consult.db"), "Path to SQLite database")
		productsPath = flag.String("products", "", "CSV of catalogue products")
		subtypesPath = flag.String("subtypes", "", "CSV of concern subtypes")
		matrixPath   = flag.String("matrix", "", "CSV of matrix rule rows")
		defaultsPath = flag.String("defaults", "", "CSV of skin-type defaults")
	)
	flag.Parse()

	if *productsPath == "" && *subtypesPath == "" && *matrixPath == "" && *defaultsPath == "" {
		logrus.Fatal("nothing to import; pass -products, -subtypes, -matrix, or -defaults")
	}

	db, err := store.Open(*dbPath, true)
	if err != nil {
		logrus.Fatalf("open database: %v", err)
	}
	defer func() {
		if cerr := db.Close(); cerr != nil {
			logrus.WithError(cerr).Warn("close database")
		}
	}()

	if *productsPath != "" {
		count, err := importProducts(db, *productsPath)
		if err != nil {
			logrus.Fatalf("import products: %v", err)
		}
		logrus.WithField("rows", count).Info("imported products")
	}
	if *subtypesPath != "" {
		count, err := importSubtypes(db, *subtypesPath)
		if err != nil {
			logrus.Fatalf("import subtypes: %v", err)
		}
		logrus.WithField("rows", count).Info("imported subtypes")
	}
	if *matrixPath != "" {
		count, err := importMatrix(db, *matrixPath)
		if err != nil {
			logrus.Fatalf("import matrix: %v", err)
		}
		logrus.WithField("rows", count).Info("imported matrix entries")
	}
	if *defaultsPath != "" {
		count, err := importDefaults(db, *defaultsPath)
		if err != nil {
			logrus.Fatalf("import defaults: %v", err)
		}
		logrus.WithField("rows", count).Info("imported skin-type defaults")
	}
}

// importProducts reads rows of
// id,display_name,brand,category,notes,pregnancy_unsafe,isotretinoin_unsafe,barrier_unsafe,keywords
// with keywords ";"-separated. Keyword tokens may still carry the legacy
// "tier:"/"subcat:" prefixes; they are translated into typed columns here.
func importProducts(db *store.Database, path string) (int, error) {
	count := 0
	err := readCSV(path, func(row []string) error {
		if len(row) < 2 {
			return nil
		}
		product := store.Product{
			ID:          strings.TrimSpace(cell(row, 0)),
			DisplayName: strings.TrimSpace(cell(row, 1)),
			Brand:       strings.TrimSpace(cell(row, 2)),
			Category:    strings.TrimSpace(cell(row, 3)),
			Notes:       strings.TrimSpace(cell(row, 4)),
		}
		if product.DisplayName == "" || strings.EqualFold(product.DisplayName, "display_name") {
			return nil
		}
		if product.ID == "" {
			product.ID = uuid.NewString()
		}
		product.PregnancyUnsafe = parseBool(cell(row, 5))
		product.IsotretinoinUnsafe = parseBool(cell(row, 6))
		product.BarrierUnsafe = parseBool(cell(row, 7))
		product.ApplyKeywords(strings.Split(cell(row, 8), ";"))
		if err := db.SaveProduct(&product); err != nil {
			return fmt.Errorf("save product %s: %w", product.ID, err)
		}
		count++
		return nil
	})
	return count, err
}

// importSubtypes reads rows of id,concern,code,label.
func importSubtypes(db *store.Database, path string) (int, error) {
	count := 0
	err := readCSV(path, func(row []string) error {
		if len(row) < 3 {
			return nil
		}
		concern := routine.ParseConcern(cell(row, 1))
		if concern == "" {
			return nil
		}
		subtype := store.ConcernSubtype{
			ID:      strings.TrimSpace(cell(row, 0)),
			Concern: string(concern),
			Code:    strings.TrimSpace(cell(row, 2)),
			Label:   strings.TrimSpace(cell(row, 3)),
		}
		if subtype.ID == "" || subtype.Code == "" {
			return nil
		}
		if err := db.UpsertSubtype(&subtype); err != nil {
			return fmt.Errorf("save subtype %s: %w", subtype.ID, err)
		}
		count++
		return nil
	})
	return count, err
}

// importMatrix reads rows of
// id,concern,subtype_id,skin_type,band,cleanser,core_serum,secondary_serum,moisturizer,sunscreen,remarks,updated_by.
// Blank slot cells stay blank; that means "no product at this severity".
func importMatrix(db *store.Database, path string) (int, error) {
	count := 0
	err := readCSV(path, func(row []string) error {
		if len(row) < 5 {
			return nil
		}
		concern := routine.ParseConcern(cell(row, 1))
		skinType := routine.ParseSkinType(cell(row, 3))
		band := routine.ParseBand(cell(row, 4))
		if concern == "" || skinType == "" || !band.Valid() {
			if !strings.EqualFold(strings.TrimSpace(cell(row, 1)), "concern") {
				logrus.WithField("row", row).Warn("skipping matrix row with invalid enums")
			}
			return nil
		}
		entry := store.MatrixEntry{
			ID:               strings.TrimSpace(cell(row, 0)),
			Concern:          string(concern),
			SubtypeID:        strings.TrimSpace(cell(row, 2)),
			SkinType:         string(skinType),
			Band:             string(band),
			CleanserID:       strings.TrimSpace(cell(row, 5)),
			CoreSerumID:      strings.TrimSpace(cell(row, 6)),
			SecondarySerumID: strings.TrimSpace(cell(row, 7)),
			MoisturizerID:    strings.TrimSpace(cell(row, 8)),
			SunscreenID:      strings.TrimSpace(cell(row, 9)),
			Remarks:          strings.TrimSpace(cell(row, 10)),
			UpdatedBy:        strings.TrimSpace(cell(row, 11)),
		}
		if entry.ID == "" {
			entry.ID = uuid.NewString()
		}
		if err := db.UpsertMatrixEntry(&entry); err != nil {
			return fmt.Errorf("save matrix entry %s: %w", entry.ID, err)
		}
		count++
		return nil
	})
	return count, err
}

// importDefaults reads rows of skin_type,slot,product_id.
func importDefaults(db *store.Database, path string) (int, error) {
	count := 0
	err := readCSV(path, func(row []string) error {
		if len(row) < 3 {
			return nil
		}
		skinType := routine.ParseSkinType(cell(row, 0))
		slot := routine.ParseSlot(cell(row, 1))
		productID := strings.TrimSpace(cell(row, 2))
		if skinType == "" || slot == "" || productID == "" {
			return nil
		}
		def := store.SkinTypeDefault{
			SkinType:  string(skinType),
			Slot:      string(slot),
			ProductID: productID,
		}
		if err := db.UpsertDefault(&def); err != nil {
			return fmt.Errorf("save default %s/%s: %w", skinType, slot, err)
		}
		count++
		return nil
	})
	return count, err
}

func readCSV(path string, handle func(row []string) error) error {
	file, err := os.Open(filepath.Clean(path))
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer file.Close()

	reader := csv.NewReader(bufio.NewReader(file))
	reader.FieldsPerRecord = -1
	for {
		row, err := reader.Read()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("read %s: %w", path, err)
		}
		if err := handle(row); err != nil {
			return err
		}
	}
}

func cell(row []string, idx int) string {
	if idx >= len(row) {
		return ""
	}
	return row[idx]
}

func parseBool(value string) bool {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "yes", "y":
		return true
	default:
		return false
	}
}

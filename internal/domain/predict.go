package domain

import (
	"encoding/json"
	"fmt"
)

// Prediction payloads are opaque to this service: the feature vectors are
// forwarded as-is to the external prediction API. The types below give the
// ad hoc payloads named fields and defaulted builders instead of untyped
// object merges.

// ============================================================
// Loan eligibility
// ============================================================

// LoanApplication is the typed request for POST /api/v1/predict.
// Field names follow the prediction API wire format.
type LoanApplication struct {
	Gender            float64 `json:"Gender"`
	Married           float64 `json:"Married"`
	Dependents        float64 `json:"Dependents"`
	Education         float64 `json:"Education"`
	SelfEmployed      float64 `json:"Self_Employed"`
	ApplicantIncome   float64 `json:"ApplicantIncome"`
	CoapplicantIncome float64 `json:"CoapplicantIncome"`
	LoanAmount        float64 `json:"LoanAmount"`
	LoanAmountTerm    float64 `json:"Loan_Amount_Term"`
	CreditHistory     float64 `json:"Credit_History"`
	PropertyArea      float64 `json:"Property_Area"`
}

// ExampleLoanApplication returns a canned application: "good", "average" or
// "poor". These mirror the example profiles offered in the client UI.
func ExampleLoanApplication(profile string) (*LoanApplication, error) {
	switch profile {
	case "good":
		return &LoanApplication{
			Gender: 1, Married: 1, Dependents: 1, Education: 1,
			ApplicantIncome: 5000, CoapplicantIncome: 1500,
			LoanAmount: 120, LoanAmountTerm: 360, CreditHistory: 1, PropertyArea: 1,
		}, nil
	case "average":
		return &LoanApplication{
			Married: 1, Dependents: 2, Education: 1,
			ApplicantIncome: 3000,
			LoanAmount:      100, LoanAmountTerm: 240, CreditHistory: 1,
		}, nil
	case "poor":
		return &LoanApplication{
			Gender: 1, Dependents: 3, SelfEmployed: 1,
			ApplicantIncome: 1500,
			LoanAmount:      170, LoanAmountTerm: 180, PropertyArea: 2,
		}, nil
	}
	return nil, &ErrValidation{Field: "profile", Message: fmt.Sprintf("unknown example profile %q", profile)}
}

// LoanPrediction is the scoring result.
type LoanPrediction struct {
	Status string `json:"Loan Status"`
}

// ============================================================
// Fraud scoring
// ============================================================

// FraudFeatures is the typed request for POST /api/v1/predict-fraud:
// a time offset, 28 anonymized PCA components (V1..V28) and the amount.
type FraudFeatures struct {
	Time   float64
	V      [28]float64
	Amount float64
}

// MarshalJSON flattens the component array into the V1..V28 keys the
// prediction API expects.
func (f FraudFeatures) MarshalJSON() ([]byte, error) {
	m := make(map[string]float64, 30)
	m["Time"] = f.Time
	m["Amount"] = f.Amount
	for i, v := range f.V {
		m[fmt.Sprintf("V%d", i+1)] = v
	}
	return json.Marshal(m)
}

// UnmarshalJSON accepts the flat V1..V28 wire format. Missing components
// default to zero so partial forms can be merged over an example vector.
func (f *FraudFeatures) UnmarshalJSON(data []byte) error {
	var m map[string]float64
	if err := json.Unmarshal(data, &m); err != nil {
		return err
	}
	f.Time = m["Time"]
	f.Amount = m["Amount"]
	for i := range f.V {
		f.V[i] = m[fmt.Sprintf("V%d", i+1)]
	}
	return nil
}

// ExampleFraudFeatures returns a canned feature vector: "legitimate" or
// "fraud". Values mirror the client UI's example transactions.
func ExampleFraudFeatures(profile string) (*FraudFeatures, error) {
	switch profile {
	case "legitimate":
		return &FraudFeatures{
			Time: 406.0,
			V: [28]float64{
				2.055797, 0.377435, 1.546322, -1.226845, 2.013444, -2.047378,
				1.197830, -0.183698, 0.089945, -2.187392, -2.160390, 1.588868,
				-0.517330, 0.545333, -0.207715, 0.244964, -0.641974, -0.798418,
				-0.404300, -0.671439, 0.456328, 0.676059, 0.672498, -0.191987,
				-0.212267, 0.238422, -0.206486, -0.185226,
			},
			Amount: 0.0,
		}, nil
	case "fraud":
		return &FraudFeatures{
			Time: 41273,
			V: [28]float64{
				-11.68221489, 6.332882093, -13.29710925, 7.690771915,
				-10.88989052, -2.792360038, -12.56178258, 7.28712221,
				-7.570322409, -12.83573768, 5.804707852, -12.15623949,
				1.184984663, -10.46867709, -0.416743197, -10.99979235,
				-22.60886819, -9.498745921, 2.102735407, -1.009319938,
				2.133456284, -1.271508967, -0.035303887, 0.615053695,
				0.349023768, -0.428922797, -0.694935387, -0.818970429,
			},
			Amount: 173.07,
		}, nil
	}
	return nil, &ErrValidation{Field: "profile", Message: fmt.Sprintf("unknown example profile %q", profile)}
}

// FraudPrediction is the scoring result.
type FraudPrediction struct {
	Fraud bool `json:"fraud"`
}

// ============================================================
// Financial advisor
// ============================================================

// AdvisorQuestion is the request for POST /api/v1/ask-financial-advisor.
// FinancialStatus is an optional free-form context string.
type AdvisorQuestion struct {
	Question        string
	FinancialStatus string
}

// AdvisorResponse is the advisor's answer.
type AdvisorResponse struct {
	Response       string   `json:"response"`
	AdditionalInfo []string `json:"additional_info,omitempty"`
	References     []string `json:"references,omitempty"`
}

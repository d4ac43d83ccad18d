package i18n

import goi18n "github.com/nicksnyder/go-i18n/v2/i18n"

var englishMessages = []*goi18n.Message{
	{ID: "prescription.title", Other: "MEDICAL PRESCRIPTION"},
	{ID: "prescription.number", Other: "Prescription No."},
	{ID: "prescription.date", Other: "Date"},
	{ID: "prescription.patient", Other: "Patient"},
	{ID: "prescription.age", Other: "Age"},
	{ID: "prescription.sex", Other: "Sex"},
	{ID: "prescription.doctor", Other: "Doctor"},
	{ID: "prescription.diagnosis", Other: "Diagnosis"},
	{ID: "prescription.medication", Other: "Medication"},
	{ID: "prescription.dosage", Other: "Dosage"},
	{ID: "prescription.frequency", Other: "Frequency"},
	{ID: "prescription.duration", Other: "Duration"},
	{ID: "prescription.instructions", Other: "Instructions"},
	{ID: "prescription.route", Other: "Route"},
	{ID: "prescription.outside_purchase", Other: "May be purchased outside the clinic pharmacy"},
	{ID: "prescription.notes", Other: "Additional notes"},
	{ID: "prescription.license", Other: "License No."},
	{ID: "prescription.signature", Other: "Signature and stamp"},
	{ID: "prescription.years", Other: "{{.Years}} years"},

	{ID: "visit.title", Other: "CONSULTATION SUMMARY"},
	{ID: "visit.date", Other: "Visit date"},
	{ID: "visit.chief_complaint", Other: "Chief complaint"},
	{ID: "visit.medical_history", Other: "Medical history"},
	{ID: "visit.present_illness", Other: "History of present illness"},
	{ID: "visit.physical_exam", Other: "Physical examination"},
	{ID: "visit.complementary_exam", Other: "Complementary examinations"},
	{ID: "visit.assessment", Other: "Assessment"},
	{ID: "visit.plan", Other: "Plan"},
	{ID: "visit.treatment", Other: "Treatment"},
	{ID: "visit.notes", Other: "Notes"},
	{ID: "visit.vitals", Other: "Vital signs"},

	{ID: "vitals.temperature", Other: "Temperature"},
	{ID: "vitals.blood_pressure", Other: "Blood pressure"},
	{ID: "vitals.heart_rate", Other: "Heart rate"},
	{ID: "vitals.respiratory_rate", Other: "Respiratory rate"},
	{ID: "vitals.oxygen_saturation", Other: "Oxygen saturation"},
	{ID: "vitals.weight", Other: "Weight"},
	{ID: "vitals.height", Other: "Height"},
	{ID: "vitals.head_circumference", Other: "Head circumference"},

	{ID: "sex.male", Other: "Male"},
	{ID: "sex.female", Other: "Female"},
	{ID: "sex.other", Other: "Other"},

	{ID: "sms.reminder", Other: "Reminder: you have an appointment with {{.Doctor}} on {{.Date}} at {{.Time}}. {{.Clinic}}"},
}

var frenchMessages = []*goi18n.Message{
	{ID: "prescription.title", Other: "ORDONNANCE MÉDICALE"},
	{ID: "prescription.number", Other: "Ordonnance No."},
	{ID: "prescription.date", Other: "Date"},
	{ID: "prescription.patient", Other: "Patient"},
	{ID: "prescription.age", Other: "Age"},
	{ID: "prescription.sex", Other: "Sexe"},
	{ID: "prescription.doctor", Other: "Médecin"},
	{ID: "prescription.diagnosis", Other: "Diagnostic"},
	{ID: "prescription.medication", Other: "Médicament"},
	{ID: "prescription.dosage", Other: "Posologie"},
	{ID: "prescription.frequency", Other: "Fréquence"},
	{ID: "prescription.duration", Other: "Durée"},
	{ID: "prescription.instructions", Other: "Instructions"},
	{ID: "prescription.route", Other: "Voie"},
	{ID: "prescription.outside_purchase", Other: "Peut être acheté en dehors de la pharmacie du cabinet"},
	{ID: "prescription.notes", Other: "Notes complémentaires"},
	{ID: "prescription.license", Other: "No. d'ordre"},
	{ID: "prescription.signature", Other: "Signature et cachet"},
	{ID: "prescription.years", Other: "{{.Years}} ans"},

	{ID: "visit.title", Other: "RÉSUMÉ DE CONSULTATION"},
	{ID: "visit.date", Other: "Date de la visite"},
	{ID: "visit.chief_complaint", Other: "Motif de consultation"},
	{ID: "visit.medical_history", Other: "Antécédents médicaux"},
	{ID: "visit.present_illness", Other: "Histoire de la maladie actuelle"},
	{ID: "visit.physical_exam", Other: "Examen physique"},
	{ID: "visit.complementary_exam", Other: "Examens complémentaires"},
	{ID: "visit.assessment", Other: "Conclusion"},
	{ID: "visit.plan", Other: "Conduite à tenir"},
	{ID: "visit.treatment", Other: "Traitement"},
	{ID: "visit.notes", Other: "Notes"},
	{ID: "visit.vitals", Other: "Signes vitaux"},

	{ID: "vitals.temperature", Other: "Température"},
	{ID: "vitals.blood_pressure", Other: "Tension artérielle"},
	{ID: "vitals.heart_rate", Other: "Fréquence cardiaque"},
	{ID: "vitals.respiratory_rate", Other: "Fréquence respiratoire"},
	{ID: "vitals.oxygen_saturation", Other: "Saturation en oxygène"},
	{ID: "vitals.weight", Other: "Poids"},
	{ID: "vitals.height", Other: "Taille"},
	{ID: "vitals.head_circumference", Other: "Périmètre crânien"},

	{ID: "sex.male", Other: "Masculin"},
	{ID: "sex.female", Other: "Féminin"},
	{ID: "sex.other", Other: "Autre"},

	{ID: "sms.reminder", Other: "Rappel: vous avez un rendez-vous avec {{.Doctor}} le {{.Date}} à {{.Time}}. {{.Clinic}}"},
}
